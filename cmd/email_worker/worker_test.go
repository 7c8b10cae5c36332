package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/contacts-identity/pkg/helpers"
	"github.com/oksasatya/contacts-identity/pkg/mailer"
	tpl "github.com/oksasatya/contacts-identity/pkg/mailer/templates"
)

type recordingSender struct {
	err      error
	to, subj string
	html     string
}

func (r *recordingSender) Send(_ context.Context, to, subject, _, html string) error {
	r.to, r.subj, r.html = to, subject, html
	return r.err
}

func jobBytes(t *testing.T, j mailer.EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(j)
	require.NoError(t, err)
	return b
}

func TestProcess_SendsRawJob(t *testing.T) {
	s := &recordingSender{}
	body := jobBytes(t, mailer.EmailJob{To: "a@x.com", Subject: "Hi", HTML: "<p>hi</p>"})

	assert.Equal(t, ack, process(context.Background(), body, false, s, helpers.NewNopLogger()))
	assert.Equal(t, "a@x.com", s.to)
	assert.Equal(t, "Hi", s.subj)
}

func TestProcess_RendersTemplate(t *testing.T) {
	s := &recordingSender{}
	body := jobBytes(t, mailer.EmailJob{
		To:       "a@x.com",
		Template: tpl.VerifyEmail,
		Data:     map[string]any{"VerifyURL": "http://localhost/api/users/verify/abc"},
	})

	assert.Equal(t, ack, process(context.Background(), body, false, s, helpers.NewNopLogger()))
	assert.NotEmpty(t, s.subj)
	assert.Contains(t, s.html, "http://localhost/api/users/verify/abc")
}

func TestProcess_DropsMalformed(t *testing.T) {
	s := &recordingSender{}
	log := helpers.NewNopLogger()
	assert.Equal(t, drop, process(context.Background(), []byte("{"), false, s, log))
	assert.Equal(t, drop, process(context.Background(), jobBytes(t, mailer.EmailJob{Subject: "no recipient", Text: "x"}), false, s, log))
	assert.Empty(t, s.to)
}

func TestProcess_RequeuesOnceOnSendFailure(t *testing.T) {
	s := &recordingSender{err: errors.New("mailgun down")}
	body := jobBytes(t, mailer.EmailJob{To: "a@x.com", Subject: "Hi", Text: "hi"})
	log := helpers.NewNopLogger()

	assert.Equal(t, requeue, process(context.Background(), body, false, s, log))
	assert.Equal(t, drop, process(context.Background(), body, true, s, log))
}
