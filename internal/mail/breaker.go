package mail

import (
	"context"
	"fmt"

	"student-result-system/internal/config"
	"student-result-system/internal/logger"

	"github.com/sony/gobreaker"
)

// BreakerSender stops calling the transport after a run of consecutive
// failures. While open, Send fails fast with gobreaker.ErrOpenState.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, cfg config.BreakerConfig) *BreakerSender {
	log := logger.For("mail")
	threshold := cfg.ConsecutiveFailures

	st := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &BreakerSender{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *BreakerSender) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, msg)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("mail transport unavailable: %w", err)
	}
	return err
}

// WithBreaker wraps every sender built by factory in its own breaker.
func WithBreaker(factory SenderFactory, cfg config.BreakerConfig) SenderFactory {
	if !cfg.Enabled {
		return factory
	}
	return func(creds Credentials) (Sender, error) {
		s, err := factory(creds)
		if err != nil {
			return nil, err
		}
		return NewBreakerSender(s, cfg), nil
	}
}
