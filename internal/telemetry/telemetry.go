// Package telemetry configures OpenTelemetry tracing for the HTTP server.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Setup configures the OpenTelemetry SDK from the standard OTEL_* environment
// variables. Baggage entries are copied onto every span. When disabled it
// returns a no-op shutdown function.
func Setup(enabled bool, serviceName string, log zerolog.Logger) (func(), error) {
	if !enabled {
		log.Debug().Msg("Telemetry disabled")
		return func() {}, nil
	}

	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
		otelconfig.WithSpanProcessor(honeycomb.NewBaggageSpanProcessor()),
	)
	if err != nil {
		return nil, fmt.Errorf("Setup: configuring OpenTelemetry: %w", err)
	}

	log.Info().Str("service", serviceName).Msg("Telemetry enabled")
	return shutdown, nil
}

// Handler wraps h so every request produces a server span named after operation.
func Handler(h http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(h, operation)
}
