package observability

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// The metrics listener is process-wide; only the first call binds it.
//
//nolint:gochecknoglobals // Singleton metrics server
var (
	metricsServer *http.Server
	startOnce     sync.Once
)

// StartMetricsServer exposes the Prometheus registry on addr under /metrics.
// Subsequent calls are no-ops.
func StartMetricsServer(log logrus.FieldLogger, addr string) {
	startOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 15 * time.Second,
		}

		go func() {
			log.WithField("addr", addr).Info("Serving pipeline metrics")

			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server exited")
			}
		}()
	})
}
