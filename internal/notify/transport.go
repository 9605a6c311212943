package notify

import (
	"context"
	"fmt"

	"taskManager/internal/logger"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, m Message) error {
	logger.Info("Notify: email (log transport)",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("text", m.Text))
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPNotifier struct {
	from    string
	host    string
	options []mail.Option
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp notifier: host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp notifier: sender address is required")
	}

	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	// validate options once so misconfiguration fails at startup
	if _, err := mail.NewClient(cfg.Host, options...); err != nil {
		return nil, fmt.Errorf("smtp notifier: %w", err)
	}

	return &SMTPNotifier{from: cfg.From, host: cfg.Host, options: options}, nil
}

// Send opens a dedicated connection per message so concurrent sends never share client state.
func (n *SMTPNotifier) Send(ctx context.Context, m Message) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("set recipient %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}

	client, err := mail.NewClient(n.host, n.options...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}
