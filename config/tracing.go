package config

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracerProvider returns the provider the console installs globally. Spans
// are not exported; they give transition log entries their trace and span
// ids.
func (c Config) TracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
}
