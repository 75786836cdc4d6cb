// Package broadcast delivers one operator message to every user, one recipient at a time.
package broadcast

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Proton-105/anime-bot/pkg/metrics"
)

// DefaultInterval is the pause between two sends.
const DefaultInterval = 50 * time.Millisecond

// Kind is the richest media the payload carries.
type Kind string

const (
	KindText      Kind = "text"
	KindPhoto     Kind = "photo"
	KindVideo     Kind = "video"
	KindAnimation Kind = "animation"
	KindDocument  Kind = "document"
)

// Payload is the message being broadcast. Text doubles as caption for media kinds.
type Payload struct {
	Kind   Kind
	FileID string
	Text   string
}

// Sender delivers a payload to one recipient.
type Sender interface {
	Send(ctx context.Context, recipient int64, p Payload) error
}

// Report is the tally of a finished broadcast.
type Report struct {
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Total is the number of recipients attempted.
func (r Report) Total() int {
	return r.Succeeded + r.Failed
}

// Fanout sends payloads sequentially under a fixed rate. It holds no lock, so
// other updates keep being served while a broadcast runs.
type Fanout struct {
	sender  Sender
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewFanout builds a Fanout that waits interval between sends.
func NewFanout(sender Sender, interval time.Duration, burst int, log *slog.Logger) *Fanout {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if burst <= 0 {
		burst = 1
	}
	if log == nil {
		log = slog.Default()
	}

	return &Fanout{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		log:     log,
	}
}

// Run delivers p to every recipient. A failed send is counted and never stops the
// loop and every recipient is attempted; only cancellation of ctx stops early, in
// which case the remaining recipients are reported as failed.
func (f *Fanout) Run(ctx context.Context, p Payload, recipients []int64) Report {
	start := time.Now()
	var report Report

	for i, recipient := range recipients {
		if err := f.limiter.Wait(ctx); err != nil {
			report.Failed += len(recipients) - i
			f.log.Warn("broadcast interrupted", slog.Int("remaining", len(recipients)-i), slog.Any("error", err))
			break
		}

		if err := f.sender.Send(ctx, recipient, p); err != nil {
			report.Failed++
			f.log.Debug("broadcast delivery failed", slog.Int64("recipient", recipient), slog.Any("error", err))
			continue
		}
		report.Succeeded++
	}

	report.Duration = time.Since(start)
	metrics.RecordBroadcast(report.Succeeded, report.Failed)

	f.log.Info("broadcast finished",
		slog.String("kind", string(p.Kind)),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)

	return report
}
