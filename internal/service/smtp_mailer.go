package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/config"
	"github.com/iliyamo/show-directory/internal/notify"
)

// SMTPMailer sends notification emails straight to an SMTP server.
type SMTPMailer struct {
	client *mail.Client
	from   string
	log    *zap.Logger
}

// NewSMTPMailer builds the mail client from cfg.  No connection is opened
// until Available or Send.
func NewSMTPMailer(cfg config.MailConfig, log *zap.Logger) (*SMTPMailer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, log: log.With(zap.String("component", "smtp-mailer"))}, nil
}

var _ notify.Transport = (*SMTPMailer)(nil)

// Available dials the server once and hangs up.
func (m *SMTPMailer) Available(ctx context.Context) error {
	sc, err := m.client.DialToSMTPClientWithContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", notify.ErrTransportUnavailable, err)
	}
	_ = m.client.CloseWithSMTPClient(sc)
	return nil
}

// Send delivers one plain text message.
func (m *SMTPMailer) Send(ctx context.Context, msg notify.Message) error {
	mm, err := m.buildMsg(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, mm); err != nil {
		m.log.Warn("send failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) buildMsg(msg notify.Message) (*mail.Msg, error) {
	mm := mail.NewMsg()
	if err := mm.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := mm.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	mm.Subject(msg.Subject)
	mm.SetDate()
	mm.SetMessageID()
	if msg.BatchID != "" {
		mm.SetGenHeader(mail.Header("X-Notification-Batch"), msg.BatchID)
	}
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)
	return mm, nil
}
