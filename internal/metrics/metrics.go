package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "student_results"

var (
	Imports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "imports_total", Help: "Spreadsheet imports by outcome",
	}, []string{"outcome"})
	ImportedRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "imported_rows_total", Help: "Student rows stored by successful imports",
	})
	EmailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "emails_total", Help: "Result email attempts by status",
	}, []string{"status"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Imports, ImportedRows, EmailsSent, HTTPRequests, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
