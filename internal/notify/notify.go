// Package notify delivers best-effort email notifications about task events.
// Delivery never decides the outcome of the operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"time"

	"taskManager/internal/logger"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Notifier interface {
	Send(context.Context, Message) error
}

type EmailResolver interface {
	ResolveEmail(ctx context.Context, userID string) (string, error)
}

// BuildFunc renders the message for one resolved recipient address.
type BuildFunc func(email string) Message

// Result counts dispatch outcomes for observability.
type Result struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeSkipped
)

const defaultMaxConcurrent = 8

type Dispatcher struct {
	resolver      EmailResolver
	notifier      Notifier
	maxConcurrent int
}

func NewDispatcher(resolver EmailResolver, notifier Notifier, maxConcurrent int) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Dispatcher{
		resolver:      resolver,
		notifier:      notifier,
		maxConcurrent: maxConcurrent,
	}
}

// Dispatch sends one message per recipient concurrently and waits for all of
// them. A failing or unresolvable recipient never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, recipientIDs []string, build BuildFunc) Result {
	start := time.Now()
	var res Result
	if len(recipientIDs) == 0 {
		return res
	}

	p := pool.NewWithResults[outcome]().WithMaxGoroutines(d.maxConcurrent)
	for _, id := range recipientIDs {
		p.Go(func() outcome {
			return d.deliver(ctx, id, build)
		})
	}

	for _, o := range p.Wait() {
		switch o {
		case outcomeSent:
			res.Sent++
		case outcomeFailed:
			res.Failed++
		case outcomeSkipped:
			res.Skipped++
		}
	}

	logger.Info("Notify: dispatch finished",
		zap.Int("recipients", len(recipientIDs)),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
		zap.Duration("ms", time.Since(start)))
	return res
}

func (d *Dispatcher) deliver(ctx context.Context, userID string, build BuildFunc) (o outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Notify: panic while sending", fmt.Errorf("%v", rec), zap.String("user_id", userID))
			o = outcomeFailed
		}
	}()

	email, err := d.resolver.ResolveEmail(ctx, userID)
	if err != nil || email == "" {
		logger.Warn("Notify: recipient skipped, no email", zap.String("user_id", userID), zap.Error(err))
		return outcomeSkipped
	}

	if err := d.notifier.Send(ctx, build(email)); err != nil {
		logger.Warn("Notify: send failed", zap.String("user_id", userID), zap.String("to", email), zap.Error(err))
		return outcomeFailed
	}
	return outcomeSent
}
