// Package monitor exposes Prometheus metrics for the acquisition
// engine, the same registration/serve shape the corpus's instrument
// server uses, re-pointed at acquisition-domain counters.
package monitor

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics groups the counters/gauges/histograms the acquisition engine
// updates directly, separate from the package-level runtime gauges so
// an Engine can be constructed without reaching for globals.
type Metrics struct {
	ActiveAcquisitions prometheus.Gauge
	FramesEmitted      prometheus.Counter
	BytesDecoded       prometheus.Counter
	ChannelsSkipped    prometheus.Counter
	RetriesTotal       *prometheus.CounterVec
	TimeoutsTotal      *prometheus.CounterVec
	WaitLatency        prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		ActiveAcquisitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "siglent_acq_active_acquisitions",
			Help: "当前进行中的采集数",
		}),
		FramesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "siglent_acq_frames_emitted_total",
			Help: "已发布的帧总数",
		}),
		BytesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "siglent_acq_bytes_decoded_total",
			Help: "已解码的波形字节总数",
		}),
		ChannelsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "siglent_acq_channels_skipped_total",
			Help: "因空波形重试耗尽而跳过的通道数",
		}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siglent_acq_retries_total",
			Help: "按重试原因分类的重试次数",
		}, []string{"kind"}),
		TimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siglent_acq_timeouts_total",
			Help: "按等待事件分类的超时次数",
		}, []string{"event"}),
		WaitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "siglent_acq_wait_latency_seconds",
			Help:    "触发/停止等待的实际耗时",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register adds every metric to the default registry. Safe to call
// once per process.
func (m *Metrics) Register() {
	prometheus.MustRegister(
		m.ActiveAcquisitions,
		m.FramesEmitted,
		m.BytesDecoded,
		m.ChannelsSkipped,
		m.RetriesTotal,
		m.TimeoutsTotal,
		m.WaitLatency,
	)
}

var (
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "siglent_acq_goroutines",
		Help: "当前Goroutine数量",
	})
	MemoryUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "siglent_acq_memory_usage_bytes",
		Help: "内存使用量",
	})
)

type Monitor struct {
	log *logrus.Logger
}

func NewMonitor(log *logrus.Logger) *Monitor {
	prometheus.MustRegister(GoroutineCount, MemoryUsage)
	return &Monitor{log: log}
}

// StartMetricsServer 启动Metrics HTTP服务器
func (m *Monitor) StartMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	m.log.Infof("Metrics服务器启动: %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.log.Errorf("Metrics服务器错误: %v", err)
		}
	}()
}

// StartRuntimeMonitor 启动运行时监控
func (m *Monitor) StartRuntimeMonitor() {
	ticker := time.NewTicker(10 * time.Second)

	go func() {
		for range ticker.C {
			GoroutineCount.Set(float64(runtime.NumGoroutine()))

			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			MemoryUsage.Set(float64(memStats.Alloc))

			m.log.Debugf("Goroutines: %d, 内存: %.2f MB",
				runtime.NumGoroutine(),
				float64(memStats.Alloc)/1024/1024,
			)
		}
	}()
}
