package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LarkSink pushes notifications as Lark direct messages addressed by email.
// Sends are throttled to stay under the IM API rate limit.
type LarkSink struct {
	sender  port.LarkMessageSender
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLarkSink creates a sink allowing perSecond messages with the given burst
func NewLarkSink(sender port.LarkMessageSender, perSecond float64, burst int, logger *zap.Logger) *LarkSink {
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &LarkSink{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

// Name identifies the sink in handler registrations
func (s *LarkSink) Name() string { return "lark" }

// Send delivers the message; recipients without an email are skipped
func (s *LarkSink) Send(ctx context.Context, msg port.NotificationMessage) error {
	if msg.RecipientEmail == "" {
		s.logger.Debug("Skipping Lark notification without email", zap.String("user_id", msg.RecipientUserID))
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.limiter.Wait(waitCtx); err != nil {
		return fmt.Errorf("lark rate limiter: %w", err)
	}

	return s.sender.SendText(ctx, "email", msg.RecipientEmail, formatText(msg))
}

func formatText(msg port.NotificationMessage) string {
	text := msg.Title + "\n" + msg.Message
	if msg.Link != "" {
		text += "\n" + msg.Link
	}
	return text
}

var _ port.NotificationSink = (*LarkSink)(nil)
