package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/go-mail/mail/v2"
)

//go:embed "templates"
var templateFS embed.FS

type Mailer interface {
	Send(ctx context.Context, recipient, templateFile string, data any) error
}

// SMTPMailer renders the "subject", "plainBody" and "htmlBody" blocks of an embedded
// template and sends the result over SMTP.
type SMTPMailer struct {
	dialer *mail.Dialer
	sender string
}

func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return &SMTPMailer{
		dialer: dialer,
		sender: sender,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, recipient, templateFile string, data any) error {
	msg, err := render(templateFile, data)
	if err != nil {
		return err
	}

	message := mail.NewMessage()
	message.SetHeader("To", recipient)
	message.SetHeader("From", m.sender)
	message.SetHeader("Subject", msg.subject)
	message.SetBody("text/plain", msg.plainBody)
	message.AddAlternative("text/html", msg.htmlBody)

	for attempt := 1; attempt <= 3; attempt++ {
		err = m.dialer.DialAndSend(message)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("sending mail to %s: %w", recipient, ctx.Err())
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	return fmt.Errorf("sending mail to %s: %w", recipient, err)
}

type renderedMessage struct {
	subject   string
	plainBody string
	htmlBody  string
}

func render(templateFile string, data any) (*renderedMessage, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}

	msg := &renderedMessage{}

	for name, target := range map[string]*string{
		"subject":   &msg.subject,
		"plainBody": &msg.plainBody,
		"htmlBody":  &msg.htmlBody,
	} {
		buf := new(bytes.Buffer)

		err = tmpl.ExecuteTemplate(buf, name, data)
		if err != nil {
			return nil, fmt.Errorf("rendering %s of %s: %w", name, templateFile, err)
		}

		*target = buf.String()
	}

	return msg, nil
}
