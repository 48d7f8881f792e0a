package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "后台任务（PDF 生成、对象清理）处理次数，按任务类型与结果区分。",
		},
		[]string{"task_type", "outcome"},
	)

	// PDF 渲染需要启动浏览器，桶上限放宽到渲染超时附近。
	taskSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "单次任务处理耗时（秒）。",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 30, 45},
		},
		[]string{"task_type"},
	)

	tasksRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_running",
			Help:      "正在执行的任务数量。",
		},
		[]string{"task_type"},
	)
)

// AsynqMetricsMiddleware 为每个任务记录耗时与结果。
// 结果区分成功、可重试失败、最后一次失败以及被 SkipRetry 丢弃的任务。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			running := tasksRunning.WithLabelValues(task.Type())
			running.Inc()
			start := time.Now()

			err := next.ProcessTask(ctx, task)

			running.Dec()
			taskSeconds.WithLabelValues(task.Type()).Observe(time.Since(start).Seconds())
			tasksTotal.WithLabelValues(task.Type(), taskOutcome(ctx, err)).Inc()
			return err
		})
	}
}

func taskOutcome(ctx context.Context, err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, asynq.SkipRetry) {
		return OutcomeSkipped
	}
	retried, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if ok1 && ok2 && retried >= maxRetry {
		return OutcomeExhaust
	}
	return OutcomeFailure
}
