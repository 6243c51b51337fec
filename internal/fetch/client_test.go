package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(Config{Attempts: 3, Delay: 5 * time.Millisecond, Timeout: time.Second}, nil)
}

func TestGetSucceedsOnThirdAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := newTestClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGetExhaustsAfterExactAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient().Get(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFetchExhausted))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Equal(t, srv.URL, exhausted.URL)
	require.Equal(t, 3, exhausted.Attempts)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusServiceUnavailable, status.Status)

	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGetFixedDelay(t *testing.T) {
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Config{Attempts: 3, Delay: 30 * time.Millisecond}, nil)
	_, err := client.Get(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrFetchExhausted)
	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		require.GreaterOrEqual(t, gap, 30*time.Millisecond)
		require.Less(t, gap, 500*time.Millisecond)
	}
}

func TestGetCancelledDuringWait(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Config{Attempts: 3, Delay: time.Minute}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Get(ctx, srv.URL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, errors.Is(err, ErrFetchExhausted))
	require.Less(t, time.Since(start), 5*time.Second)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWithRetryStopsAtAttemptCount(t *testing.T) {
	var calls int
	boom := errors.New("boom")
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return boom
	}, nil)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, ErrFetchExhausted)
	require.Equal(t, 2, calls)
}
