package telemetry

import (
	"bytes"
	"context"
	"flag"
	"testing"

	"github.com/jdillenkofer/signtool/internal/settings"
	testutils "github.com/jdillenkofer/signtool/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func loadSettings(t *testing.T, args ...string) *settings.Settings {
	testutils.IsolateSettings(t)
	s, _, err := settings.LoadSettings(flag.NewFlagSet("test", flag.ContinueOnError), args)
	require.NoError(t, err)
	return s
}

func TestSetupOTelSDKWithStdoutExporter(t *testing.T) {
	testutils.SkipIfIntegration(t)
	ctx := context.Background()
	var out bytes.Buffer

	shutdown, err := SetupOTelSDK(ctx, loadSettings(t, "-otelExporter", "stdout"), &out)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(ctx, "test-span")
	span.End()

	require.NoError(t, shutdown(ctx))
	assert.Contains(t, out.String(), "test-span")
	assert.Contains(t, out.String(), serviceName)
}

func TestSetupOTelSDKRejectsUnknownExporter(t *testing.T) {
	testutils.SkipIfIntegration(t)
	ctx := context.Background()

	_, err := SetupOTelSDK(ctx, loadSettings(t, "-otelExporter", "zipkin"), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}
