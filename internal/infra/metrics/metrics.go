package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	MonitorCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_cycles_total",
		Help: "Циклы проверки таблицы по результату",
	}, []string{"result"})

	ChangesDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_changes_detected_total",
		Help: "Обнаруженные изменения таблицы",
	}, []string{"kind"})

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Отправленные уведомления подписчикам",
	}, []string{"status"})

	SubscribersEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "subscribers_evicted_total",
		Help: "Подписчики, удалённые из-за блокировки бота",
	})

	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "subscribers",
		Help: "Текущее количество подписчиков",
	})

	PollVotes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_votes_total",
		Help: "Голоса в опросах о времени игры",
	}, []string{"result"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		NetworkRequestDuration,
		NetworkRequestTotal,
		MonitorCycles,
		ChangesDetected,
		NotificationsTotal,
		SubscribersEvicted,
		Subscribers,
		PollVotes,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveCycle учитывает завершённый цикл мониторинга.
func ObserveCycle(result string) {
	MonitorCycles.WithLabelValues(result).Inc()
}

// ObserveChange учитывает обнаруженное изменение.
func ObserveChange(kind string) {
	ChangesDetected.WithLabelValues(kind).Inc()
}

// ObserveNotification учитывает попытку доставки уведомления.
func ObserveNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}

// ObserveVote учитывает голос в опросе.
func ObserveVote(result string) {
	PollVotes.WithLabelValues(result).Inc()
}
