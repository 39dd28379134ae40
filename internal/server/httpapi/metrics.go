package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the API's Prometheus instruments, exported on /metrics.
type Metrics struct {
	Registrations      prometheus.Counter
	Logins             prometheus.Counter
	LicenseActivations *prometheus.CounterVec
	BackupUploads      *prometheus.CounterVec
	BackupBytes        prometheus.Counter
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backupd_registrations_total",
			Help: "Number of successfully registered accounts.",
		}),
		Logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backupd_logins_total",
			Help: "Number of successful logins.",
		}),
		LicenseActivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backupd_license_activations_total",
			Help: "License activation attempts by outcome.",
		}, []string{"outcome"}),
		BackupUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backupd_backup_uploads_total",
			Help: "Backup uploads by outcome (stored, deduplicated, renamed).",
		}, []string{"outcome"}),
		BackupBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backupd_backup_bytes_total",
			Help: "Total bytes of stored backup payloads.",
		}),
	}
	reg.MustRegister(m.Registrations, m.Logins, m.LicenseActivations, m.BackupUploads, m.BackupBytes)
	return m
}
