package loader

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Notice is the refresh notification published for every completed load.
type Notice struct {
	RunID        string             `json:"run_id"`
	Dataset      string             `json:"dataset"`
	Status       dashboard.Status   `json:"status"`
	ErrorKind    string             `json:"error_kind,omitempty"`
	Labels       int                `json:"labels"`
	LatestLabel  string             `json:"latest_label,omitempty"`
	KPIs         map[string]float64 `json:"kpis,omitempty"`
	SourceDigest string             `json:"source_digest,omitempty"`
	Headless     bool               `json:"headless"`
	Timestamp    string             `json:"timestamp"`
}

// Attributes are copied onto the Pub/Sub message for subscription filters.
func (n Notice) Attributes() map[string]string {
	return map[string]string{
		"dataset": n.Dataset,
		"status":  string(n.Status),
		"run_id":  n.RunID,
	}
}

// NewNotice summarizes outcome for subscribers. NaN and infinite KPI values are
// left out because JSON cannot carry them.
func NewNotice(outcome dashboard.Outcome, now time.Time) Notice {
	notice := Notice{
		RunID:        outcome.RunID,
		Dataset:      outcome.Dataset,
		Status:       outcome.Status,
		ErrorKind:    outcome.ErrorKind,
		Labels:       len(outcome.Table.Labels),
		SourceDigest: outcome.SourceDigest,
		Headless:     outcome.UsedHeadless,
		Timestamp:    now.Format(time.RFC3339),
	}
	if n := len(outcome.Table.Labels); n > 0 {
		notice.LatestLabel = outcome.Table.Labels[n-1]
	}
	for _, kpi := range outcome.KPIs {
		v := float64(kpi.Value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if notice.KPIs == nil {
			notice.KPIs = make(map[string]float64, len(outcome.KPIs))
		}
		notice.KPIs[kpi.Field] = v
	}
	return notice
}

// publishOutcome is best effort: a failed publish is logged and never changes
// the outcome.
func (l *Loader) publishOutcome(ctx context.Context, logger *zap.Logger, outcome dashboard.Outcome) {
	if l.cfg.Topic == "" || l.publisher == nil {
		return
	}
	notice := NewNotice(outcome, l.clock.Now())
	id, err := l.publisher.Publish(ctx, l.cfg.Topic, notice)
	if err != nil {
		logger.Warn("publish refresh notice failed", zap.String("topic", l.cfg.Topic), zap.Error(err))
		return
	}
	logger.Debug("refresh notice published", zap.String("topic", l.cfg.Topic), zap.String("message_id", id))
}
