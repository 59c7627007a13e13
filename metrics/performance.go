package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PerformanceMetrics struct {
	RequestDuration *prometheus.HistogramVec
	TransformTime   *prometheus.HistogramVec
	StorageTime     *prometheus.HistogramVec
	ImageSizeBytes  *prometheus.HistogramVec
}

func InitializePerformanceMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "request_duration_seconds",
			Help:        "Hook request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"status"}),

		TransformTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "transform_duration_seconds",
			Help:        "Decode, resize and encode time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"format"}),

		StorageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "storage_duration_seconds",
			Help:        "Object storage call time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),

		ImageSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "transform_output_bytes",
			Help:        "Encoded derived image size in bytes",
			ConstLabels: constLabels,
			Buckets:     []float64{1024, 10240, 102400, 1048576, 10485760, 104857600}, // 1KB to 100MB
		}, []string{"format"}),
	}

	// Register all metrics
	registry.MustRegister(
		metrics.RequestDuration,
		metrics.TransformTime,
		metrics.StorageTime,
		metrics.ImageSizeBytes,
	)

	return metrics
}

// TimeFunction measures the execution time of a function
func TimeFunction[T any](fn func() (T, error), observer *prometheus.HistogramVec, label string) (T, error) {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start).Seconds()

	if observer != nil {
		observer.WithLabelValues(label).Observe(duration)
	}

	return result, err
}

// ObserveSize records the size of an encoded image
func (m *PerformanceMetrics) ObserveSize(format string, size int) {
	if m == nil {
		return
	}
	m.ImageSizeBytes.WithLabelValues(format).Observe(float64(size))
}
