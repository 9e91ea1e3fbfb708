package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "dev", ""} {
		log, err := NewLogger(env)
		require.NoError(t, err, env)
		assert.NotNil(t, log)
	}
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_Exporter(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{Endpoint: "127.0.0.1:4318", Insecure: true})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	_ = shutdown(ctx)
}
