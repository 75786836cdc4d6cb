// Package health serves the ops endpoints and probes the bot's dependencies.
package health

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

const defaultCheckTimeout = 2 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// Status is the outcome of one probe.
type Status struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// Report is the readiness verdict over every registered dependency.
type Report struct {
	Healthy    bool
	Components map[string]Status
}

// Checker runs the registered probes for /readyz.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Check
}

func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{log: log, timeout: defaultCheckTimeout, checks: make(map[string]Check)}
}

// Register adds check under name, replacing an earlier one.
func (c *Checker) Register(name string, check Check) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run probes every dependency concurrently, each bounded by the check timeout.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	report := Report{Healthy: true, Components: make(map[string]Status, len(checks))}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := c.probe(ctx, name, check)

			mu.Lock()
			defer mu.Unlock()
			report.Components[name] = st
			report.Healthy = report.Healthy && st.OK
		}()
	}
	wg.Wait()

	return report
}

func (c *Checker) probe(ctx context.Context, name string, check Check) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	st := Status{OK: err == nil, Latency: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		st.Error = err.Error()
		c.log.Error("dependency unhealthy", slog.String("component", name), slog.Any("error", err))
	}
	return st
}

// Database pings the SQL pool.
func Database(db *sql.DB) Check {
	return func(ctx context.Context) error {
		if db == nil {
			return sql.ErrConnDone
		}
		return db.PingContext(ctx)
	}
}

// Pinger is the part of redis.Client a probe needs.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Redis issues a PING.
func Redis(p Pinger) Check {
	return func(ctx context.Context) error {
		if p == nil {
			return redis.ErrClosed
		}
		return p.Ping(ctx).Err()
	}
}

var errBotOffline = errors.New("telegram bot has not completed its handshake")

// Telegram reports whether the bot knows its own identity, which it learns at startup.
func Telegram(bot *telebot.Bot) Check {
	return func(context.Context) error {
		if bot == nil || bot.Me == nil || bot.Me.ID == 0 {
			return errBotOffline
		}
		return nil
	}
}
