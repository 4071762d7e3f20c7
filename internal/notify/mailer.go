package notify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/wneessen/go-mail"

	"github.com/joseph-ayodele/seguridadvial/internal/common"
)

// Message is an outgoing notification email.
type Message struct {
	To             string
	Subject        string
	Text           string
	HTML           string
	AttachmentPath string
	AttachmentName string
}

// Mailer delivers notification emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	cfg    common.MailConfig
	logger *slog.Logger
}

func NewSMTPMailer(cfg common.MailConfig, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) client() (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.cfg.Timeout))
	}
	if m.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return mail.NewClient(m.cfg.Host, opts...)
}

// BuildMessage turns a Message into a MIME message.
func (m *SMTPMailer) BuildMessage(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("%w: from address: %v", common.ErrInvalidInput, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", common.ErrInvalidInput, err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	if msg.AttachmentPath != "" {
		name := msg.AttachmentName
		if name == "" {
			name = filepath.Base(msg.AttachmentPath)
		}
		out.AttachFile(msg.AttachmentPath, mail.WithFileName(name))
		if len(out.GetAttachments()) == 0 {
			return nil, fmt.Errorf("attachment %s: %w", msg.AttachmentPath, common.ErrNotFound)
		}
	}
	return out, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled() {
		return common.ErrMailDisabled
	}
	mm, err := m.BuildMessage(msg)
	if err != nil {
		return err
	}
	c, err := m.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, mm); err != nil {
		m.logger.Error("mail.send.failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return fmt.Errorf("send mail: %w", err)
	}
	m.logger.Info("mail.send.ok", "to", msg.To, "subject", msg.Subject)
	return nil
}

// ValidateRecipient checks that addr is a single valid mailbox.
func ValidateRecipient(addr string) error {
	if err := mail.NewMsg().To(addr); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", common.ErrInvalidInput, addr, err)
	}
	return nil
}
