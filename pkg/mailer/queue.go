package mailer

import (
	"context"
)

// Publisher is the part of helpers.RabbitQueue the queue sender needs.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Queue hands emails to the email worker instead of sending them inline.
// Send returns once the broker has the job; delivery happens later.
type Queue struct {
	Pub Publisher
}

func NewQueue(pub Publisher) *Queue {
	return &Queue{Pub: pub}
}

func (q *Queue) Send(ctx context.Context, to, subject, text, html string) error {
	return q.Pub.PublishJSON(ctx, EmailJob{To: to, Subject: subject, Text: text, HTML: html})
}
