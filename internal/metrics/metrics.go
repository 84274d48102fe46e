package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_alerts_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	PublishedJobsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_alerts_jobs_published_total",
			Help: "Job posting events handed to the broker, by outcome.",
		},
		[]string{"outcome"},
	)
	ConsumedMessagesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_alerts_messages_consumed_total",
			Help: "Messages taken from the queue, by result.",
		},
		[]string{"result"},
	)
	DeliveredNotificationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "job_alerts_notifications_delivered_total",
			Help: "Total number of mailbox entries appended.",
		},
	)
	ProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "job_alerts_message_processing_duration_seconds",
			Help:    "Duration of handling one job posting message.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ErrorsCounter)
		prometheus.MustRegister(PublishedJobsCounter)
		prometheus.MustRegister(ConsumedMessagesCounter)
		prometheus.MustRegister(DeliveredNotificationsCounter)
		prometheus.MustRegister(ProcessingDuration)
	})
}

func StartMetricsServer(address string) {
	Register()

	if address == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(address, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server stopped: %v", err)
		}
	}()
}
