package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"github.com/thomasly/option-analysis/internal/config"
)

// Notifier delivers finished reports to an outside channel. Delivery
// failures never fail the run; the analyzer logs and moves on.
type Notifier interface {
	NotifyRun(ctx context.Context, report *RunReport) error
	NotifyCorrelation(ctx context.Context, report *CorrelationReport) error
}

// EmailNotifier sends report summaries over SMTP.
type EmailNotifier struct {
	cfg    config.SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *logrus.Logger
}

// NewEmailNotifier creates an SMTP notifier from config.
func NewEmailNotifier(cfg config.SMTPConfig, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, send: smtp.SendMail, logger: logger}
}

func (n *EmailNotifier) NotifyRun(ctx context.Context, report *RunReport) error {
	return n.deliver(report.Title(), report.Summary())
}

func (n *EmailNotifier) NotifyCorrelation(ctx context.Context, report *CorrelationReport) error {
	return n.deliver(report.Title(), report.Summary())
}

func (n *EmailNotifier) deliver(subject, body string) error {
	if n.cfg.Host == "" || len(n.cfg.Recipients) == 0 {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.Sender)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(n.cfg.Recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.Sender, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, n.cfg.Sender, n.cfg.Recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send report email: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"subject":    subject,
		"recipients": len(n.cfg.Recipients),
	}).Info("Report email sent")
	return nil
}

// TelegramNotifier sends report summaries to a Telegram chat.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *logrus.Logger
}

// NewTelegramNotifier creates a Telegram notifier. Returns nil when no
// token is configured; callers treat a nil notifier as disabled.
func NewTelegramNotifier(cfg config.TelegramConfig, logger *logrus.Logger) *TelegramNotifier {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil
	}

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize Telegram bot, notifications disabled")
		return nil
	}

	return &TelegramNotifier{bot: b, chatID: cfg.ChatID, logger: logger}
}

func (n *TelegramNotifier) NotifyRun(ctx context.Context, report *RunReport) error {
	return n.deliver(ctx, report.Summary())
}

func (n *TelegramNotifier) NotifyCorrelation(ctx context.Context, report *CorrelationReport) error {
	return n.deliver(ctx, report.Summary())
}

func (n *TelegramNotifier) deliver(ctx context.Context, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// MultiNotifier fans a report out to every configured channel and
// collects delivery errors.
type MultiNotifier struct {
	sinks []Notifier
}

// NewMultiNotifier bundles the given sinks. Callers only pass sinks
// that are actually configured.
func NewMultiNotifier(sinks ...Notifier) *MultiNotifier {
	return &MultiNotifier{sinks: sinks}
}

func (m *MultiNotifier) NotifyRun(ctx context.Context, report *RunReport) error {
	var errs []string
	for _, s := range m.sinks {
		if err := s.NotifyRun(ctx, report); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return joinErrors(errs)
}

func (m *MultiNotifier) NotifyCorrelation(ctx context.Context, report *CorrelationReport) error {
	var errs []string
	for _, s := range m.sinks {
		if err := s.NotifyCorrelation(ctx, report); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return joinErrors(errs)
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("notification delivery: %s", strings.Join(errs, "; "))
}
