package rpc

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

const (
	// DefaultProbeTimeout bounds a single endpoint probe.
	DefaultProbeTimeout = 5 * time.Second
	// winnerTTL is how long a fastest pick is reused before re-benchmarking.
	winnerTTL = 5 * time.Minute
)

// Fallback chooses and dials the read-only endpoint for a chain. It is safe
// for concurrent use across chains.
type Fallback struct {
	picker  *Picker
	timeout time.Duration
	log     *zap.Logger
	ttl     time.Duration
	winners *cache.Cache // chain id -> url
}

// NewFallback returns a selector using algo.
func NewFallback(algo Algorithm, log *zap.Logger) *Fallback {
	if log == nil {
		log = zap.NewNop()
	}
	if algo == "" {
		algo = AlgorithmFastest
	}
	return &Fallback{
		picker:  NewPicker(algo),
		timeout: DefaultProbeTimeout,
		log:     log.Named("rpc"),
		ttl:     winnerTTL,
		winners: cache.New(winnerTTL, 2*winnerTTL),
	}
}

// Candidates lists custom urls first, then the chain's own, without duplicates.
func Candidates(target chain.Descriptor, custom []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{custom, target.RPCURLs} {
		for _, u := range list {
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// Select returns the best url for target. With a single candidate no probe
// is made. Failover probes candidates in order and stops at the first
// healthy one; the other algorithms benchmark every candidate. Endpoints
// serving another chain are discarded. Under the fastest algorithm the
// winner is reused for winnerTTL while it is still a candidate.
func (f *Fallback) Select(ctx context.Context, target chain.Descriptor, custom []string) (string, []BenchmarkResult, error) {
	urls := Candidates(target, custom)
	switch len(urls) {
	case 0:
		return "", nil, ErrNoHealthyRPC
	case 1:
		return urls[0], nil, nil
	}
	if url, ok := f.cached(target.ChainID, urls); ok {
		return url, nil, nil
	}

	if f.picker.Algorithm() == AlgorithmFailover {
		return f.failover(ctx, target, urls)
	}

	results := Benchmark(ctx, urls, target.ID(), f.timeout)
	for _, r := range results {
		if r.Err != nil {
			f.log.Debug("rpc probe failed", zap.String("url", r.URL), zap.Error(r.Err))
		}
	}

	winner, err := f.picker.Pick(ResultsToEndpoints(results))
	if err != nil {
		return "", results, err
	}
	f.log.Debug("rpc selected", zap.String("url", winner.URL), zap.Duration("latency", winner.Latency),
		zap.String("algorithm", string(f.picker.Algorithm())))
	if f.picker.Algorithm() == AlgorithmFastest {
		f.remember(target.ChainID, winner.URL)
	}
	return winner.URL, results, nil
}

// Dial selects the best endpoint and connects to it.
func (f *Fallback) Dial(ctx context.Context, target chain.Descriptor, custom []string) (*ethclient.Client, string, error) {
	url, _, err := f.Select(ctx, target, custom)
	if err != nil {
		return nil, "", fmt.Errorf("selecting rpc for %s: %w", target.ChainName, err)
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		f.forget(target.ChainID)
		return nil, "", fmt.Errorf("dialing %s: %w", url, err)
	}
	return client, url, nil
}

func (f *Fallback) failover(ctx context.Context, target chain.Descriptor, urls []string) (string, []BenchmarkResult, error) {
	var results []BenchmarkResult
	for _, u := range urls {
		r := Probe(ctx, u, target.ID(), f.timeout)
		results = append(results, r)
		if r.Err == nil {
			f.log.Debug("rpc selected", zap.String("url", u), zap.Duration("latency", r.Latency),
				zap.String("algorithm", string(AlgorithmFailover)))
			return u, results, nil
		}
		f.log.Debug("rpc probe failed", zap.String("url", u), zap.Error(r.Err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", results, ErrNoHealthyRPC
}

func (f *Fallback) cached(chainID string, candidates []string) (string, bool) {
	v, ok := f.winners.Get(chainID)
	if !ok {
		return "", false
	}
	url := v.(string)
	if !slices.Contains(candidates, url) {
		return "", false
	}
	return url, true
}

func (f *Fallback) remember(chainID, url string) {
	f.winners.Set(chainID, url, f.ttl)
}

func (f *Fallback) forget(chainID string) {
	f.winners.Delete(chainID)
}
