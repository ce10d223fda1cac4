package notification

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/factory"
	"PcapSpectra/internal/model"
	"PcapSpectra/internal/report"
)

func init() {
	factory.RegisterWriter("email", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		if def.SMTP.Host == "" || def.SMTP.From == "" || def.SMTP.To == "" {
			return nil, fmt.Errorf("email writer requires smtp host, from and to")
		}
		return NewEmailNotifier(def.SMTP, cfg.Analysis), nil
	})
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails the HTML report of every finished capture.
type EmailNotifier struct {
	cfg      config.SMTPConfig
	auth     smtp.Auth
	renderer *report.Writer
	send     sendFunc
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig, analysis config.AnalysisConfig) *EmailNotifier {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailNotifier{
		cfg:      cfg,
		auth:     auth,
		renderer: report.NewWriter("", analysis),
		send:     smtp.SendMail,
	}
}

// Name returns the writer type.
func (n *EmailNotifier) Name() string {
	return "email"
}

// Write renders the capture's report and mails it.
func (n *EmailNotifier) Write(ctx context.Context, c *model.Capture) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	md, err := n.renderer.Render(c)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	subject := fmt.Sprintf("Traffic report: %s (%d packets)", c.Name, c.Result.PacketCount)
	if err := n.Send(subject, string(report.HTML(subject, md))); err != nil {
		return err
	}
	log.Printf("Mailed report for capture '%s' to %s", c.Name, n.cfg.To)
	return nil
}

// Send sends an email to the configured recipients.
func (n *EmailNotifier) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	recipients := strings.Split(n.cfg.To, ",")
	for i := range recipients {
		recipients[i] = strings.TrimSpace(recipients[i])
	}

	// Header values must not carry line breaks.
	subject = strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)
	msg := []byte("To: " + n.cfg.To + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body)

	if err := n.send(addr, n.auth, n.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
