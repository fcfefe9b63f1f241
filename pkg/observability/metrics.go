package observability

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	Turns          *prometheus.CounterVec
	Validations    *prometheus.CounterVec
	Actions        *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servicedesk_turns_total",
				Help: "Total number of processed form turns",
			},
			[]string{"form", "status"},
		),
		Validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servicedesk_slot_validations_total",
				Help: "Total number of slot validations by verdict",
			},
			[]string{"slot", "verdict"},
		),
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servicedesk_actions_total",
				Help: "Total number of terminal actions",
			},
			[]string{"action", "status", "is_error"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "servicedesk_action_duration_seconds",
				Help:    "Duration of terminal actions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Turns, m.Validations, m.Actions, m.ActionDuration)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(string(e.Form), string(e.Status)).Inc()
		},
		OnValidation: func(_ context.Context, e *domain.ValidationEvent) {
			m.Validations.WithLabelValues(e.Slot, string(e.Verdict)).Inc()
		},
		OnAction: func(_ context.Context, e *domain.ActionEvent) {
			m.Actions.WithLabelValues(e.Action, string(e.Status), strconv.FormatBool(e.IsError)).Inc()
			m.ActionDuration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
	}
}

// LogHooks returns lifecycle hooks that log every event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn",
				"session_id", e.SessionID,
				"form", e.Form,
				"requested_slot", e.RequestedSlot,
				"status", e.Status,
			)
		},
		OnValidation: func(ctx context.Context, e *domain.ValidationEvent) {
			logger.DebugContext(ctx, "slot_validation",
				"session_id", e.SessionID,
				"slot", e.Slot,
				"verdict", e.Verdict,
			)
		},
		OnAction: func(ctx context.Context, e *domain.ActionEvent) {
			level := slog.LevelInfo
			if e.IsError {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "action",
				"session_id", e.SessionID,
				"action", e.Action,
				"status", e.Status,
				"duration", e.Duration,
			)
		},
	}
}

// Chain fans each event out to every non-nil callback of hooks, in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			for _, h := range hooks {
				if h.OnTurn != nil {
					h.OnTurn(ctx, e)
				}
			}
		},
		OnValidation: func(ctx context.Context, e *domain.ValidationEvent) {
			for _, h := range hooks {
				if h.OnValidation != nil {
					h.OnValidation(ctx, e)
				}
			}
		},
		OnAction: func(ctx context.Context, e *domain.ActionEvent) {
			for _, h := range hooks {
				if h.OnAction != nil {
					h.OnAction(ctx, e)
				}
			}
		},
	}
}
