package middleware

import (
	"regexp"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/handlers"
	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	"github.com/Proton-105/anime-bot/pkg/metrics"
)

var commandPattern = regexp.MustCompile(`^/[a-z_]{1,32}$`)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordAction(ActionLabel(c), status, time.Since(start))

		return err
	}
}

// ActionLabel returns a low-cardinality label for the update: the callback
// action id, the slash command, or "text".
func ActionLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		if action, _, err := keyboard.DecodeCallback(cb.Data); err == nil {
			return string(action)
		}
		return "unknown"
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		cmd, _, _ = strings.Cut(cmd, "@")
		if !commandPattern.MatchString(cmd) {
			return "command"
		}
		return cmd
	}

	if c.Message() != nil && c.Message().Media() != nil {
		return "media"
	}

	if text != "" {
		return "text"
	}

	return "unknown"
}
