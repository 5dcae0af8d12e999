package ports

import "time"

// MetricsRecorder métricas del pipeline de verificación.
type MetricsRecorder interface {
	ObserveSAT(estado string, fromCache bool, d time.Duration)
	ObserveCache(hit bool)
	ObserveExtraction(metodo string, chars int)
}

// NopMetrics implementación vacía.
type NopMetrics struct{}

func (NopMetrics) ObserveSAT(string, bool, time.Duration) {}
func (NopMetrics) ObserveCache(bool)                      {}
func (NopMetrics) ObserveExtraction(string, int)          {}

var _ MetricsRecorder = NopMetrics{}
