package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleBurstAndRefill(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	throttle := NewThrottle(ThrottleConfig{AttemptsPerMinute: 1, Burst: 2})
	throttle.now = func() time.Time { return now }

	assert.True(t, throttle.Allow("ada"))
	assert.True(t, throttle.Allow(" ADA "))
	assert.False(t, throttle.Allow("ada"))
	assert.True(t, throttle.Allow("grace"), "buckets are per username")

	now = now.Add(time.Minute)
	assert.True(t, throttle.Allow("ada"))
	assert.False(t, throttle.Allow("ada"))

	throttle.Reset("Ada")
	assert.True(t, throttle.Allow("ada"))
}

func TestThrottleDisabled(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{})
	for range 10 {
		require.True(t, throttle.Allow("ada"))
	}

	var none *Throttle
	require.True(t, none.Allow("ada"))
	none.Reset("ada")
}

func TestServiceLoginThrottlesRepeatedFailures(t *testing.T) {
	server, captured := newLoginServer(t, http.StatusOK, `{"status":"false","message":"Invalid password"}`)
	sessions := newSessionStore(t)
	failures := &failureLog{}
	svc := NewService(NewClient(server.URL, EncodingJSON, time.Second), sessions, failures,
		WithThrottle(NewThrottle(ThrottleConfig{AttemptsPerMinute: 0.01, Burst: 2})))
	creds := Credentials{Username: "ada", Password: "secret"}

	for range 2 {
		_, err := svc.Login(context.Background(), creds)
		require.Equal(t, "Invalid password", UserMessage(err))
	}

	captured.Method = ""
	_, err := svc.Login(context.Background(), creds)
	require.Equal(t, MessageTooManyAttempts, UserMessage(err))
	assert.Empty(t, captured.Method, "throttled attempts never reach the server")
	assert.Len(t, failures.failures, 2)
}
