package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(w http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	w(rec, req)
	return rec
}

func TestService_NotReadyByDefault(t *testing.T) {
	s := New()
	assert.False(t, s.IsReady())

	w := probe(s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "service is not ready")
}

func TestService_SetReady(t *testing.T) {
	s := New()
	s.SetReady(true)
	assert.True(t, s.IsReady())

	w := probe(s.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())

	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestService_LivenessHealthyByDefault(t *testing.T) {
	s := New()
	s.AddLivenessCheck("never-ran", time.Second, func(context.Context) error {
		return errors.New("boom")
	})

	// Checks assume healthy until they actually fail past the threshold.
	w := probe(s.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestService_FailureThreshold(t *testing.T) {
	c := newCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	ctx := t.Context()
	c.run(ctx)
	c.run(ctx)
	require.True(t, c.healthy.Load(), "two failures stay under the threshold")

	c.run(ctx)
	require.False(t, c.healthy.Load(), "third consecutive failure flips the check")
	assert.Equal(t, "connection refused", c.failure())
}

func TestService_RecoveryAfterFailure(t *testing.T) {
	var fail bool
	c := newCheck("db", time.Second, func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})

	ctx := t.Context()
	fail = true
	for range 3 {
		c.run(ctx)
	}
	require.False(t, c.healthy.Load())

	fail = false
	c.run(ctx)
	assert.True(t, c.healthy.Load(), "one success restores health")
}

func TestService_ReadyEndpointReportsFailures(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("dial tcp: connection refused")
	})

	// Drive the check past its failure threshold directly.
	ctx := t.Context()
	for range 3 {
		s.readiness[0].run(ctx)
	}

	assert.False(t, s.IsReady())
	w := probe(s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "dial tcp: connection refused")
}

func TestService_StartAndStop(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)
	s.AddLivenessCheck("tick", time.Second, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start(t.Context(), 10*time.Millisecond)
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("check never ran")
	}
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(100000)(t.Context()))
	require.Error(t, GoroutineCountCheck(0)(t.Context()))
}
