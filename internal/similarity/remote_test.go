package similarity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOracleRelatedness(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Contains(t, r.URL.Query().Get("node1"), "/c/en/")
		fmt.Fprint(w, `{"value": 0.42}`)
	}))
	defer srv.Close()

	oracle, err := NewOracle(OracleConfig{BaseURL: srv.URL, CallsPerMinute: 20, Logger: zerolog.Nop()})
	require.NoError(t, err)

	score, ok := oracle.Relatedness(context.Background(), "dog", "wolf")
	require.True(t, ok)
	assert.InDelta(t, 0.42, score, 1e-9)

	// Second lookup for the same pair hits the cache.
	score, ok = oracle.Relatedness(context.Background(), "dog", "wolf")
	require.True(t, ok)
	assert.InDelta(t, 0.42, score, 1e-9)
	assert.Equal(t, int64(1), calls.Load())
}

func TestOracleThrottlesSilently(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value": 0.5}`)
	}))
	defer srv.Close()

	oracle, err := NewOracle(OracleConfig{BaseURL: srv.URL, CallsPerMinute: 1, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, ok := oracle.Relatedness(context.Background(), "dog", "wolf")
	require.True(t, ok)

	// Burst is spent and the pair differs, so this must degrade to a miss
	// instead of blocking.
	_, ok = oracle.Relatedness(context.Background(), "dog", "bear")
	assert.False(t, ok)
}

func TestOracleSwallowsUpstreamFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	oracle, err := NewOracle(OracleConfig{BaseURL: srv.URL, CallsPerMinute: 20, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, ok := oracle.Relatedness(context.Background(), "dog", "wolf")
	assert.False(t, ok)
}
