// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsChecker_Allowed(t *testing.T) {
	var fetches int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&fetches, 1)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	rc := NewRobotsChecker(ts.Client(), "catalog-aggregator/0.1", time.Minute)
	ctx := context.Background()

	ok, err := rc.Allowed(ctx, ts.URL+"/search?q=x")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rc.Allowed(ctx, ts.URL+"/private/records")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches), "robots.txt should be cached per host")
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	rc := NewRobotsChecker(ts.Client(), "catalog-aggregator", 0)
	ok, err := rc.Allowed(context.Background(), ts.URL+"/anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProductToken(t *testing.T) {
	assert.Equal(t, "catalog-aggregator", productToken("catalog-aggregator/0.1 (mailto:x@y)"))
	assert.Equal(t, "", productToken(""))
}
