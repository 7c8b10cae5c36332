package mailer

import (
	"errors"
	"strings"

	tpl "github.com/oksasatya/contacts-identity/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Subject with Text/HTML is set, or Template with Data and the worker renders it.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "verify_email"
	Data     map[string]any `json:"data,omitempty"`
}

// Resolve renders the template when one is named and checks the job is sendable.
func (j *EmailJob) Resolve() error {
	if strings.TrimSpace(j.To) == "" {
		return errors.New("email job without recipient")
	}
	if j.Template != "" {
		if j.Data == nil {
			j.Data = map[string]any{}
		}
		if _, ok := j.Data["Email"]; !ok {
			j.Data["Email"] = j.To
		}
		s, t, h, err := tpl.Render(j.Template, j.Data)
		if err != nil {
			return err
		}
		j.Subject, j.Text, j.HTML = s, t, h
		return nil
	}
	if j.Subject == "" || (j.Text == "" && j.HTML == "") {
		return errors.New("either template or subject with text/html is required")
	}
	return nil
}
