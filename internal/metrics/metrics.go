// Package metrics publishes the run outcome for the exporter textfile
// collector.
package metrics

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opsdeploy/mak2kms/internal/model"
)

// Recorder accumulates one run's outcome in its own registry so the snapshot
// can be written as a textfile.
type Recorder struct {
	reg      *prometheus.Registry
	success  prometheus.Gauge
	exitCode prometheus.Gauge
	duration prometheus.Gauge
	reboot   prometheus.Gauge
	actions  *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mak2kms_run_success",
			Help: "Whether the last remediation run succeeded (1) or failed (0).",
		}),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mak2kms_run_exit_code",
			Help: "Exit code of the last remediation run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mak2kms_run_duration_seconds",
			Help: "Wall clock duration of the last remediation run.",
		}),
		reboot: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mak2kms_reboot_required",
			Help: "Whether the last run left a reboot pending (1) or not (0).",
		}),
		actions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mak2kms_actions",
			Help: "Licensing mutations issued during the last run, by kind and product.",
		}, []string{"kind", "product"}),
	}
	r.reg.MustRegister(r.success, r.exitCode, r.duration, r.reboot, r.actions)
	return r
}

// Observe records the finished run.
func (r *Recorder) Observe(res *model.RemediationResult, exitCode int, duration time.Duration) {
	if exitCode == 0 || exitCode == 3010 {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
	r.exitCode.Set(float64(exitCode))
	r.duration.Set(duration.Seconds())
	if res.RebootRequired {
		r.reboot.Set(1)
	}
	for _, a := range res.Actions {
		r.actions.WithLabelValues(string(a.Kind), string(a.Product)).Inc()
	}
}

// WriteFile writes the snapshot to dir/mak2kms.prom. A run with no metrics
// directory configured skips the write.
func (r *Recorder) WriteFile(dir string) error {
	if dir == "" {
		return nil
	}
	return prometheus.WriteToTextfile(filepath.Join(dir, "mak2kms.prom"), r.reg)
}
