/*
Package observability turns conversation lifecycle events into Prometheus
metrics and structured audit logs.

Both are exposed as domain.LifecycleHooks and combine with Merge:

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hooks := metrics.Hooks().Merge(observability.LogHooks(logger))
	engine, err := medley.New(path, medley.WithLifecycleHooks(hooks))
*/
package observability
