package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/contacts-identity/internal/domain/entity"
	"github.com/oksasatya/contacts-identity/internal/domain/repository"
)

// Layout:
//
//	user:<id>            hash with the record
//	user:email:<email>   -> id, claimed with SETNX so emails stay unique
//	user:verify:<token>  -> id, present while the account is unverified
func keyUser(id string) string      { return "user:" + id }
func keyEmail(email string) string  { return "user:email:" + email }
func keyVerify(token string) string { return "user:verify:" + token }
func timeField(t time.Time) string  { return t.UTC().Format(time.RFC3339Nano) }
func boolField(b bool) string       { return strconv.FormatBool(b) }

// hsetIfExists writes ARGV pairs into KEYS[1] only when the hash exists.
var hsetIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`)

// swapVerifyToken replaces the verification token and its index entry.
// KEYS[1] user hash, ARGV[1] user id, ARGV[2] new token, ARGV[3] updated_at
var swapVerifyToken = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local old = redis.call("HGET", KEYS[1], "verification_token")
if old and old ~= "" then
  redis.call("DEL", "user:verify:" .. old)
end
redis.call("HSET", KEYS[1], "verification_token", ARGV[2], "updated_at", ARGV[3])
if ARGV[2] ~= "" then
  redis.call("SET", "user:verify:" .. ARGV[2], ARGV[1])
end
return 1
`)

// consumeVerifyToken marks the user verified only while ARGV[1] is still its
// verification token, so one token verifies at most once.
// KEYS[1] user hash, ARGV[1] expected token, ARGV[2] updated_at
var consumeVerifyToken = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local cur = redis.call("HGET", KEYS[1], "verification_token")
if not cur or cur == "" or cur ~= ARGV[1] then
  return 0
end
redis.call("DEL", "user:verify:" .. cur)
redis.call("HSET", KEYS[1], "verification_token", "", "verified", "true", "updated_at", ARGV[2])
return 1
`)

type UserRepository struct {
	rdb *redis.Client
}

func NewUserRepository(rdb *redis.Client) *UserRepository {
	return &UserRepository{rdb: rdb}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	id := uuid.NewString()
	claimed, err := r.rdb.SetNX(ctx, keyEmail(u.Email), id, 0).Result()
	if err != nil {
		return fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		return repository.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	token := ""
	if u.Token != nil {
		token = *u.Token
	}
	fields := map[string]any{
		"id":                 id,
		"email":              u.Email,
		"password_hash":      u.Password,
		"avatar_url":         u.AvatarURL,
		"subscription":       u.Subscription,
		"token":              token,
		"has_token":          boolField(u.Token != nil),
		"verification_token": u.VerificationToken,
		"verified":           boolField(u.Verified),
		"created_at":         timeField(now),
		"updated_at":         timeField(now),
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keyUser(id), fields)
		if u.VerificationToken != "" {
			pipe.Set(ctx, keyVerify(u.VerificationToken), id, 0)
		}
		return nil
	})
	if err != nil {
		_ = r.rdb.Del(ctx, keyEmail(u.Email)).Err()
		return fmt.Errorf("write user: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	data, err := r.rdb.HGetAll(ctx, keyUser(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if len(data) == 0 {
		return nil, repository.ErrNotFound
	}
	return decodeUser(data), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	id, err := r.lookup(ctx, keyEmail(email))
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	id, err := r.lookup(ctx, keyVerify(token))
	if err != nil {
		return nil, err
	}
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// index entries can outlive a swap that raced with this read
	if u.VerificationToken != token {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) lookup(ctx context.Context, key string) (string, error) {
	id, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read index: %w", err)
	}
	return id, nil
}

func (r *UserRepository) UpdateToken(ctx context.Context, id string, token *string) error {
	value, has := "", false
	if token != nil {
		value, has = *token, true
	}
	return r.hset(ctx, id, "token", value, "has_token", boolField(has))
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return r.hset(ctx, id, "avatar_url", avatarURL)
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	n, err := swapVerifyToken.Run(ctx, r.rdb, []string{keyUser(id)}, id, token, timeField(time.Now())).Int()
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, id, token string) error {
	if token == "" {
		return repository.ErrNotFound
	}
	n, err := consumeVerifyToken.Run(ctx, r.rdb, []string{keyUser(id)}, token, timeField(time.Now())).Int()
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) hset(ctx context.Context, id string, pairs ...string) error {
	args := make([]any, 0, len(pairs)+2)
	for _, p := range pairs {
		args = append(args, p)
	}
	args = append(args, "updated_at", timeField(time.Now()))
	n, err := hsetIfExists.Run(ctx, r.rdb, []string{keyUser(id)}, args...).Int()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func decodeUser(data map[string]string) *entity.User {
	u := &entity.User{
		ID:                data["id"],
		Email:             data["email"],
		Password:          data["password_hash"],
		AvatarURL:         data["avatar_url"],
		Subscription:      data["subscription"],
		VerificationToken: data["verification_token"],
	}
	u.Verified, _ = strconv.ParseBool(data["verified"])
	if has, _ := strconv.ParseBool(data["has_token"]); has {
		t := data["token"]
		u.Token = &t
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, data["created_at"])
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, data["updated_at"])
	return u
}

var _ repository.UserRepository = (*UserRepository)(nil)
