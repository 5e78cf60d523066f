// Package metrics ツアー編集エンジンのPrometheusメトリクス
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"TourRoute-App/internal/domain/model"
)

var (
	// TourCommandsTotal コマンド別・結果別の実行回数
	TourCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tour_route_commands_total",
			Help: "Total number of tour route commands by command and result",
		},
		[]string{"command", "result"},
	)

	// PublishChecksTotal 公開可否チェックの結果
	PublishChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tour_route_publish_checks_total",
			Help: "Total number of publishability checks by outcome",
		},
		[]string{"outcome"},
	)

	// PersistenceFailuresTotal 永続化失敗（ローカル状態が保存より先行）
	PersistenceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tour_route_persistence_failures_total",
			Help: "Total number of persistence failures after an in-memory mutation",
		},
		[]string{"operation"},
	)

	// CircuitBreakerState サーキットブレーカーの状態 (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tour_route_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// OpenTourSessions メモリ上で編集中のツアー数
	OpenTourSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tour_route_open_sessions",
			Help: "Number of tours currently held in memory by the editor",
		},
	)
)

// ResultLabel エラーをメトリクスのラベルに分類する
func ResultLabel(err error) string {
	var perr *model.PersistenceError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &perr):
		return "persistence_failure"
	case errors.Is(err, model.ErrInvalidIndex),
		errors.Is(err, model.ErrInvalidCoordinates),
		errors.Is(err, model.ErrInvalidDwellTime):
		return "invalid"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrPublishBlocked):
		return "blocked"
	default:
		return "error"
	}
}

// RecordCommand コマンドの実行結果を記録する
func RecordCommand(command string, err error) {
	TourCommandsTotal.WithLabelValues(command, ResultLabel(err)).Inc()
	var perr *model.PersistenceError
	if errors.As(err, &perr) {
		PersistenceFailuresTotal.WithLabelValues(perr.Op).Inc()
	}
}

// RecordPublishCheck 公開可否チェックの結果を記録する
func RecordPublishCheck(report *model.PublishReport, err error) {
	switch {
	case err != nil:
		PublishChecksTotal.WithLabelValues("error").Inc()
	case report.CanPublish:
		PublishChecksTotal.WithLabelValues("publishable").Inc()
	default:
		PublishChecksTotal.WithLabelValues("blocked").Inc()
	}
}
