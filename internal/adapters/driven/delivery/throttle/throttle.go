// Package throttle limits how fast any Sender is called.
package throttle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure Sender implements the interface.
var _ driven.Sender = (*Sender)(nil)

// Sender waits on a token bucket before each send.
type Sender struct {
	next    driven.Sender
	limiter *rate.Limiter
}

// Wrap limits next to perSecond sends with a burst of one.
// A non-positive rate returns next unchanged.
func Wrap(next driven.Sender, perSecond float64) driven.Sender {
	if perSecond <= 0 {
		return next
	}
	return &Sender{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Send waits for a token, then sends.
func (s *Sender) Send(ctx context.Context, msg domain.Message) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("throttle: %w", err)
	}
	return s.next.Send(ctx, msg)
}

// Name returns the wrapped transport's name.
func (s *Sender) Name() string {
	return s.next.Name()
}
