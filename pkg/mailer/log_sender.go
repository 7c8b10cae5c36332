package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender only logs outgoing mail. Used when MAIL_SEND_ENABLED=false.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, _, _ string) error {
	s.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("mail sending disabled, email not delivered")
	return nil
}
