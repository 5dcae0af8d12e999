// Package metrics expone las métricas del verificador en formato Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
)

const namespace = "cfdi"

// Recorder implementa ports.MetricsRecorder sobre un registry propio.
type Recorder struct {
	registry *prometheus.Registry

	satConsultas   *prometheus.CounterVec
	satDuracion    *prometheus.HistogramVec
	cacheConsultas *prometheus.CounterVec
	extracciones   *prometheus.CounterVec
	extraidos      *prometheus.HistogramVec
}

var _ ports.MetricsRecorder = (*Recorder)(nil)

// NewRecorder registra las métricas en un registry nuevo, junto con las de Go y proceso.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		satConsultas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sat",
			Name:      "consultas_total",
			Help:      "Resultados de la validación ante el SAT por estado y origen.",
		}, []string{"estado", "from_cache"}),
		satDuracion: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sat",
			Name:      "duracion_segundos",
			Help:      "Latencia de la validación ante el SAT.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}, []string{"estado"}),
		cacheConsultas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "consultas_total",
			Help:      "Aciertos y fallos de la caché de estados.",
		}, []string{"resultado"}),
		extracciones: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraccion",
			Name:      "documentos_total",
			Help:      "Documentos procesados por método de extracción.",
		}, []string{"metodo"}),
		extraidos: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraccion",
			Name:      "caracteres",
			Help:      "Longitud del texto extraído.",
			Buckets:   prometheus.ExponentialBuckets(50, 4, 7),
		}, []string{"metodo"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.satConsultas, r.satDuracion, r.cacheConsultas, r.extracciones, r.extraidos,
	)
	return r
}

func (r *Recorder) ObserveSAT(estado string, fromCache bool, d time.Duration) {
	r.satConsultas.WithLabelValues(estado, strconv.FormatBool(fromCache)).Inc()
	if !fromCache {
		r.satDuracion.WithLabelValues(estado).Observe(d.Seconds())
	}
}

func (r *Recorder) ObserveCache(hit bool) {
	resultado := "fallo"
	if hit {
		resultado = "acierto"
	}
	r.cacheConsultas.WithLabelValues(resultado).Inc()
}

func (r *Recorder) ObserveExtraction(metodo string, chars int) {
	r.extracciones.WithLabelValues(metodo).Inc()
	r.extraidos.WithLabelValues(metodo).Observe(float64(chars))
}

// Registry devuelve el registry subyacente.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler sirve el formato de exposición de Prometheus.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
