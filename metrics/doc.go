// Package metrics collects Prometheus metrics for the HTTP pipeline and
// the WebSocket dispatcher.
//
// The collector keeps a private registry, so framework metrics never
// collide with an application's default registry. The server wires the
// observe methods into the pipeline and dispatcher hooks and mounts
// Handler at the configured path:
//
//	collector := metrics.New(metrics.Config{Namespace: "myapp"})
//
//	pipeline.Observe = collector.ObserveHTTP
//	dispatcher.ObserveConn = collector.ObserveConn
//	dispatcher.ObserveMessage = collector.ObserveMessage
//
//	mux.Handle(collector.Path(), collector.Handler())
//
// Observe methods tolerate a nil receiver and nil vectors, so the same
// wiring works when metrics are disabled or a group is not enabled.
package metrics
