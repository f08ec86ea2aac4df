package studio

import "github.com/prometheus/client_golang/prometheus"

// 生成结果标签
const (
	resultSuccess        = "success"
	resultBlocked        = "blocked"
	resultRejected       = "rejected"
	resultInferenceError = "inference_error"
	resultUploadError    = "upload_error"
	resultResolveError   = "resolve_error"
)

// Metrics 生成流程指标
type Metrics struct {
	generations *prometheus.CounterVec
	galleryRuns *prometheus.CounterVec
}

// NewMetrics 创建并注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genai_gallery_generations_total",
			Help: "Image generation attempts by result.",
		}, []string{"result"}),
		galleryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genai_gallery_refreshes_total",
			Help: "Gallery refreshes by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.generations, m.galleryRuns)
	return m
}

func (m *Metrics) generation(result string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(result).Inc()
}

func (m *Metrics) galleryRefresh(ok bool) {
	if m == nil {
		return
	}
	result := resultSuccess
	if !ok {
		result = "error"
	}
	m.galleryRuns.WithLabelValues(result).Inc()
}
