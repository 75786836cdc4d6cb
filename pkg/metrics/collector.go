package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"github.com/Proton-105/anime-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_actions_total",
			Help: "Total number of bot actions handled labeled by action and status",
		},
		[]string{"action", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "action_duration_seconds",
			Help:    "Duration of bot action handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "users_in_flow",
			Help: "Current number of users with a pending conversation step",
		},
	)
	usersByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_by_state",
			Help: "Number of users per state",
		},
		[]string{"state"},
	)
	broadcastDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Broadcast deliveries split by result",
		},
		[]string{"result"},
	)
	purchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vip_purchases_total",
			Help: "VIP purchase attempts split by outcome",
		},
		[]string{"outcome"},
	)
	catalogViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_title_views_total",
			Help: "Number of title cards served",
		},
	)
)

var trackedStates = []state.State{
	state.StateAnimeName,
	state.StateAnimeMedia,
	state.StateEpisodeWaitID,
	state.StateEpisodeWaitMedia,
	state.StateBroadcastContent,
	state.StateManageTarget,
	state.StateManageBalance,
	state.StateSearchQuery,
}

// RecordAction increments action counters and records duration.
func RecordAction(action, status string, duration time.Duration) {
	if action == "" {
		action = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(action, status).Inc()
	commandDurationSeconds.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordBroadcast counts delivered and failed broadcast messages.
func RecordBroadcast(succeeded, failed int) {
	broadcastDeliveriesTotal.WithLabelValues("success").Add(float64(succeeded))
	broadcastDeliveriesTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordPurchase counts a VIP purchase attempt by outcome.
func RecordPurchase(outcome string) {
	purchasesTotal.WithLabelValues(outcome).Inc()
}

// RecordTitleView counts a served title card.
func RecordTitleView() {
	catalogViewsTotal.Inc()
}

// RecordStateTransition tracks conversation step transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// SetActiveUsers updates the gauge for current active users.
func SetActiveUsers(count int) {
	activeUsers.Set(float64(count))
}

// SetUsersByState updates the gauge for the given state.
func SetUsersByState(state string, count int) {
	if state == "" {
		state = "unknown"
	}

	usersByState.WithLabelValues(state).Set(float64(count))
}

// collectInterval is how often the flow gauges are refreshed.
const collectInterval = 10 * time.Second

// StateCollector refreshes the users_in_flow and users_by_state gauges.
type StateCollector struct {
	fsm      state.StateMachine
	interval time.Duration
}

func NewStateCollector(fsm state.StateMachine) *StateCollector {
	return &StateCollector{fsm: fsm, interval: collectInterval}
}

// Run collects once right away, then every interval until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}

	_ = c.collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.collect(ctx)
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.fsm.GetAllStates(ctx)
	if err != nil {
		return err
	}

	counts := lo.CountValuesBy(states, func(us *state.UserState) string {
		if us == nil || us.CurrentState == "" {
			return "unknown"
		}
		return string(us.CurrentState)
	})

	SetActiveUsers(len(states))
	usersByState.Reset()

	// tracked steps are always exported, so an emptied step reads 0
	for _, tracked := range trackedStates {
		label := string(tracked)
		SetUsersByState(label, counts[label])
		delete(counts, label)
	}
	for label, n := range counts {
		SetUsersByState(label, n)
	}

	return nil
}
