package outline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchTextRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(FetcherOptions{})
	body, err := fetcher.FetchText(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, "<html>ok</html>", body)
	require.Equal(t, int32(3), hits.Load())
}

func TestFetchTextExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewFetcher(FetcherOptions{MaxRetries: 1})
	_, err := fetcher.FetchText(context.Background(), server.URL)
	require.Error(t, err)
	require.Equal(t, int32(2), hits.Load())

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, FailureHttp, ferr.Kind)
	require.Equal(t, http.StatusServiceUnavailable, ferr.Status)
}

func TestFetchTextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	fetcher := NewFetcher(FetcherOptions{
		MaxRetries:     1,
		AttemptTimeout: time.Millisecond * 50,
	})
	_, err := fetcher.FetchText(context.Background(), server.URL)
	require.Error(t, err)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, FailureTimeout, ferr.Kind)
}

func TestFetchTextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Millisecond * 100)
		cancel()
	}()

	fetcher := NewFetcher(FetcherOptions{})
	start := time.Now()
	_, err := fetcher.FetchText(ctx, server.URL)
	require.Error(t, err)
	// cancellation must cut the backoff short instead of sleeping it out
	require.Less(t, time.Since(start), time.Second)
}
