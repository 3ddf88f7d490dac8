package integration

import "github.com/taskcal/taskcal/internal/metrics"

// The metric vecs are nil until metrics.Register runs; tests exercise the
// services without it, so every bump goes through a nil check.

func countRefresh(result string) {
	if metrics.TokenRefreshesTotal != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(result).Inc()
	}
}

func countProviderCall(op string, err error) {
	if metrics.ProviderCallsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ProviderCallsTotal.WithLabelValues(op, result).Inc()
}
