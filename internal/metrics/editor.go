package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resume_editor"

// outcome 标签取值。
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeQuota   = "quota_exceeded"
	OutcomeDiscard = "discarded"
	OutcomeExhaust = "retries_exhausted"
	OutcomeSkipped = "skipped"
)

var (
	autosaveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autosave",
			Name:      "saves_total",
			Help:      "自动保存次数，按结果区分。",
		},
		[]string{"outcome"},
	)

	autosaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "autosave",
			Name:      "save_duration_seconds",
			Help:      "单次自动保存耗时（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
	)

	summaryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "summary_generations_total",
			Help:      "AI 摘要生成次数，按结果区分。",
		},
		[]string{"outcome"},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "editor",
			Name:      "sessions_active",
			Help:      "当前打开的编辑会话数量。",
		},
	)
)

// ObserveAutosave 记录一次自动保存的结果与耗时。
func ObserveAutosave(outcome string, took time.Duration) {
	autosaveTotal.WithLabelValues(outcome).Inc()
	if took > 0 {
		autosaveDuration.Observe(took.Seconds())
	}
}

// ObserveSummary 记录一次摘要生成的结果。
func ObserveSummary(outcome string) {
	summaryTotal.WithLabelValues(outcome).Inc()
}

func SessionOpened() { sessionsActive.Inc() }
func SessionClosed() { sessionsActive.Dec() }
