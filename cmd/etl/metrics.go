package main

import (
	"fmt"

	"go.uber.org/zap"

	"koboetl/internal/config"
	"koboetl/internal/metrics"
	"koboetl/internal/metrics/datadog"
	"koboetl/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend. The returned func
// releases it at process exit.
func setupMetrics(p config.Pipeline) (func(), error) {
	switch p.Metrics.Backend {
	case "", "none":
		zap.L().Debug("metrics disabled")
		return func() {}, nil

	case "pushgateway":
		b, err := prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
		if err != nil {
			return nil, err
		}
		metrics.SetBackend(b)
		zap.L().Info("metrics enabled", zap.String("backend", "pushgateway"), zap.String("url", p.Metrics.PushgatewayURL))
		return metrics.Reset, nil

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.DatadogAddr,
			GlobalTags: []string{"job:" + p.Job},
		})
		if err != nil {
			return nil, err
		}
		metrics.SetBackend(b)
		zap.L().Info("metrics enabled", zap.String("backend", "datadog"), zap.String("addr", p.Metrics.DatadogAddr))
		return func() {
			if err := b.Close(); err != nil {
				zap.L().Warn("datadog close failed", zap.Error(err))
			}
			metrics.Reset()
		}, nil

	default:
		return nil, fmt.Errorf("unknown metrics backend %q", p.Metrics.Backend)
	}
}
