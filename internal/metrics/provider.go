package metrics

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Provider is an in-process meter provider whose values are pulled on demand,
// so a run can log its totals on exit without an exporter.
type Provider struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewProvider creates a Provider.
func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// MeterProvider returns the underlying SDK provider.
func (p *Provider) MeterProvider() *sdkmetric.MeterProvider {
	return p.provider
}

// SetGlobal installs the provider as the global meter provider.
func (p *Provider) SetGlobal() {
	otel.SetMeterProvider(p.provider)
}

// Shutdown releases the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// Value is one collected data point.
type Value struct {
	Name       string
	Attributes string
	Value      float64 // sum for counters and histograms, last value for gauges
	Count      uint64  // histogram sample count
}

// Snapshot collects the current value of every instrument.
// Values are sorted by name then attributes.
func (p *Provider) Snapshot(ctx context.Context) ([]Value, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var out []Value
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Value{Name: m.Name, Attributes: attrString(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Value{Name: m.Name, Attributes: attrString(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Value{Name: m.Name, Attributes: attrString(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Value{Name: m.Name, Attributes: attrString(dp.Attributes), Value: dp.Sum, Count: dp.Count})
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attributes < out[j].Attributes
	})
	return out, nil
}

// Find returns the value with the given name and encoded attributes.
func Find(values []Value, name, attrs string) (Value, bool) {
	for _, v := range values {
		if v.Name == name && v.Attributes == attrs {
			return v, true
		}
	}
	return Value{}, false
}

func attrString(set attribute.Set) string {
	return set.Encoded(attribute.DefaultEncoder())
}
