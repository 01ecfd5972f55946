package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"ppecatalog/internal/config"
	"ppecatalog/internal/metrics"
)

// SendTimeout bounds one SMTP conversation.
const SendTimeout = 10 * time.Second

// Message is one outgoing email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer hands messages to a mail transport.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer sends through an SMTP relay, one connection per message.
type SMTPMailer struct {
	host string
	from string
	opts []mail.Option
}

func NewSMTPMailer(c config.SMTP) *SMTPMailer {
	opts := []mail.Option{
		mail.WithPort(c.Port),
		mail.WithTimeout(SendTimeout),
	}
	if c.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if c.User != "" || c.Pass != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(c.User),
			mail.WithPassword(c.Pass),
		)
	}
	return &SMTPMailer{host: c.Host, from: c.From, opts: opts}
}

func (s *SMTPMailer) client() (*mail.Client, error) {
	return mail.NewClient(s.host, s.opts...)
}

// Verify dials the relay once and hangs up.
func (s *SMTPMailer) Verify(ctx context.Context) error {
	client, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp verify %s: %w", s.host, err)
	}
	return client.Close()
}

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return fmt.Errorf("reply-to: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)

	client, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	start := time.Now()
	err = client.DialAndSendWithContext(ctx, msg)
	metrics.MailSendDuration.Observe(time.Since(start).Seconds())
	return err
}

// LogMailer only logs. It stands in when no SMTP host is configured.
type LogMailer struct {
	Log *zap.Logger
}

func (l LogMailer) Send(_ context.Context, m Message) error {
	l.Log.Info("mail_not_sent_no_smtp",
		zap.String("to", m.To),
		zap.String("reply_to", m.ReplyTo),
		zap.String("subject", m.Subject),
	)
	return nil
}
