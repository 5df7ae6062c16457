package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
)

// textfileExporter collects OTel metrics into a private Prometheus registry
// and writes them in text exposition format, for node_exporter's textfile collector.
type textfileExporter struct {
	path     string
	registry *prometheus.Registry
	reader   *promexporter.Exporter
}

func newTextfileExporter(path string) (*textfileExporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &textfileExporter{path: path, registry: registry, reader: exporter}, nil
}

// write must run before the meter provider shuts down; the exporter stops
// collecting afterwards.
func (e *textfileExporter) write() error {
	err := prometheus.WriteToTextfile(e.path, e.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", e.path, err)
	}

	return nil
}
