package mail

import (
	"context"
	"log/slog"
	"time"
)

// LogMailer writes rendered messages to a logger instead of sending them.
// The log contains the link or passcode, so it is for development only.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(ctx context.Context, to, link string) error {
	msg, err := RenderVerification(to, link)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail not sent (development)", "to", msg.To, "subject", msg.Subject, "link", link)
	return nil
}

func (m *LogMailer) SendOTP(ctx context.Context, to, otp string, validFor time.Duration) error {
	msg, err := RenderOTP(to, otp, validFor)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail not sent (development)", "to", msg.To, "subject", msg.Subject, "otp", otp, "valid_for", validFor)
	return nil
}
