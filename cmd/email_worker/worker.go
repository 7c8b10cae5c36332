package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/contacts-identity/pkg/mailer"
)

type sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

type outcome int

const (
	ack outcome = iota
	drop
	requeue
)

const sendTimeout = 15 * time.Second

// process decodes, renders and sends one queued email.
// Malformed jobs are dropped; a failed send is retried once via requeue.
func process(ctx context.Context, body []byte, redelivered bool, s sender, logger *logrus.Logger) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		logger.WithError(err).Warn("bad message")
		return drop
	}
	if err := job.Resolve(); err != nil {
		logger.WithError(err).WithField("template", job.Template).Warn("unsendable job")
		return drop
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.Send(c, job.To, job.Subject, job.Text, job.HTML); err != nil {
		entry := logger.WithError(err).WithField("subject", job.Subject)
		if redelivered {
			entry.Error("send failed again, dropping")
			return drop
		}
		entry.Warn("send failed, requeueing")
		return requeue
	}
	logger.WithField("subject", job.Subject).Debug("email sent")
	return ack
}
