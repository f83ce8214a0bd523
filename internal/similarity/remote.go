package similarity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultOracleBaseURL = "https://api.conceptnet.io/relatedness"
	oracleTimeout        = 2500 * time.Millisecond
	oracleCacheSize      = 300
)

// OracleConfig tunes the remote relatedness helper.
type OracleConfig struct {
	BaseURL        string
	CallsPerMinute int
	Logger         zerolog.Logger
}

// Oracle is a rate-limited, cached client for a remote word-relatedness API.
// Throttled or failed lookups degrade silently to a miss; they never block
// guess evaluation beyond the request timeout.
type Oracle struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   *lru.Cache[string, float64]
	log     zerolog.Logger
}

func NewOracle(cfg OracleConfig) (*Oracle, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOracleBaseURL
	}
	perMinute := cfg.CallsPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}

	cache, err := lru.New[string, float64](oracleCacheSize)
	if err != nil {
		return nil, fmt.Errorf("oracle cache: %w", err)
	}

	return &Oracle{
		baseURL: base,
		client:  &http.Client{Timeout: oracleTimeout},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute),
		cache:   cache,
		log:     cfg.Logger.With().Str("component", "oracle").Logger(),
	}, nil
}

// Relatedness returns a score in [0,1] for the word pair, or ok=false when
// the lookup is unavailable: throttled, timed out, or the upstream answered
// garbage.
func (o *Oracle) Relatedness(ctx context.Context, a, b string) (float64, bool) {
	key := a + "::" + b
	if score, ok := o.cache.Get(key); ok {
		return score, true
	}

	if !o.limiter.Allow() {
		o.log.Debug().Str("pair", key).Msg("relatedness lookup throttled")
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, oracleTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("node1", "/c/en/"+url.PathEscape(a))
	query.Set("node2", "/c/en/"+url.PathEscape(b))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		o.log.Warn().Err(err).Str("pair", key).Msg("relatedness lookup failed")
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		o.log.Warn().Int("status", resp.StatusCode).Str("pair", key).Msg("relatedness lookup rejected")
		return 0, false
	}

	var payload struct {
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		o.log.Warn().Err(err).Str("pair", key).Msg("relatedness response unreadable")
		return 0, false
	}

	score := clamp01(payload.Value)
	o.cache.Add(key, score)
	return score, true
}
