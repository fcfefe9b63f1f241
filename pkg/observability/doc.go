/*
Package observability turns coordinator lifecycle hooks into Prometheus metrics
and structured log lines.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hooks := observability.Chain(metrics.Hooks(), observability.LogHooks(logger))
	engine := servicedesk.New(servicedesk.WithLifecycleHooks(hooks))
*/
package observability
