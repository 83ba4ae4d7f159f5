package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_provider_requests_total",
		Help: "Total provider page requests by result status",
	}, []string{"status"})
	ProviderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poi_provider_duration_ms",
		Help:    "Provider page request duration in milliseconds",
		Buckets: []float64{10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	CellsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_cells_total",
		Help: "Grid cells processed by outcome",
	}, []string{"result"})
	PagesPerCell = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poi_pages_per_cell",
		Help:    "Provider pages requested per grid cell",
		Buckets: []float64{1, 2, 3, 5, 10, 15, 20},
	})
	RecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_records_total",
		Help: "Candidate records by filter result",
	}, []string{"result"})
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_runs_total",
		Help: "Aggregation runs by terminal status",
	}, []string{"status"})
	RunDurationSec = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poi_run_duration_seconds",
		Help:    "Aggregation run wall time in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})
	CacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_cache_total",
		Help: "Provider page cache lookups by result",
	}, []string{"result"})
	ActiveRuns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poi_active_runs",
		Help: "Runs currently fetching",
	})
)

func init() {
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(CellsTotal)
	prometheus.MustRegister(PagesPerCell)
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDurationSec)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(ActiveRuns)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
