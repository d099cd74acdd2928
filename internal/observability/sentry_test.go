package observability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/config"
)

func TestInitSentry_EmptyDSN_NoOp(t *testing.T) {
	require.NoError(t, InitSentry(config.SentryConfig{}, "test"))

	require.NotPanics(t, func() {
		CaptureError(errors.New("boom"), "req-1", "/login")
		CaptureError(nil, "", "")
		CapturePanic("boom", []byte("stack"), "req-1", "/login")
		FlushSentry()
	})
}

func TestInitSentry_InvalidDSN(t *testing.T) {
	err := InitSentry(config.SentryConfig{DSN: "::not-a-dsn::"}, "test")
	require.Error(t, err)
}
