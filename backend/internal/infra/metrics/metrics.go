package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	gameUploadRequests     *prometheus.CounterVec
	gameUploadDuration     *prometheus.HistogramVec
	gameUploadBytes        *prometheus.CounterVec
	gamePlayRequests       *prometheus.CounterVec
	gameDeleteRequests     *prometheus.CounterVec
	defaultDurationBuckets = prometheus.DefBuckets
)

const (
	namespaceMetrics = "gamehub"
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		gameUploadRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "ingest",
					Name:      "requests_total",
					Help:      "游戏上传接口的调用次数，按执行状态统计。",
				},
				[]string{"status"},
			),
		)
		gameUploadDuration = registerHistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "ingest",
					Name:      "duration_seconds",
					Help:      "游戏上传流水线的处理耗时，按上传文件类型区分。",
					Buckets:   defaultDurationBuckets,
				},
				[]string{"file_type"},
			),
		)
		gameUploadBytes = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "ingest",
					Name:      "bytes_total",
					Help:      "游戏上传接口接收的字节数，按上传文件类型拆分。",
				},
				[]string{"file_type"},
			),
		)
		gamePlayRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "playback",
					Name:      "requests_total",
					Help:      "游戏播放解析的调用次数，按结果分类。",
				},
				[]string{"result"},
			),
		)
		gameDeleteRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "catalog",
					Name:      "delete_requests_total",
					Help:      "删除游戏及其资源的调用次数，按结果分类。",
				},
				[]string{"result"},
			),
		)

		registerRuntimeCollectors()
	})
}

// ObserveGameUpload 记录上传流水线的调用结果、耗时与接收的字节数。
func ObserveGameUpload(status, fileType string, duration time.Duration, bytes int64) {
	if gameUploadRequests == nil || gameUploadDuration == nil {
		return
	}
	label := normalizeLabel(status, "unknown")
	gameUploadRequests.WithLabelValues(label).Inc()

	typeLabel := normalizeLabel(fileType, "unspecified")
	gameUploadDuration.WithLabelValues(typeLabel).Observe(duration.Seconds())

	if gameUploadBytes == nil || bytes <= 0 {
		return
	}
	gameUploadBytes.WithLabelValues(typeLabel).Add(float64(bytes))
}

// RecordGamePlay 记录播放解析的结果分布。
func RecordGamePlay(result string) {
	if gamePlayRequests == nil {
		return
	}
	gamePlayRequests.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

// RecordGameDelete 记录删除游戏及其远端资源的结果分布。
func RecordGameDelete(result string) {
	if gameDeleteRequests == nil {
		return
	}
	gameDeleteRequests.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredCounterVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredHistogramVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func alreadyRegisteredCounterVec(err error) *prometheus.CounterVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	return nil
}

func alreadyRegisteredHistogramVec(err error) *prometheus.HistogramVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			return existing
		}
	}
	return nil
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
