package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

// ErrWrongChain marks an endpoint serving a different chain than expected.
var ErrWrongChain = errors.New("endpoint serves a different chain")

// probeConcurrency bounds parallel probes.
const probeConcurrency = 8

// BenchmarkResult holds the result of a single endpoint benchmark.
type BenchmarkResult struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     *big.Int
	Err         error
}

// Probe measures eth_blockNumber latency on url and, when wantChainID is set,
// checks eth_chainId.
func Probe(ctx context.Context, url string, wantChainID *big.Int, timeout time.Duration) BenchmarkResult {
	res := BenchmarkResult{URL: url}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		res.Err = err
		return res
	}
	defer client.Close()

	start := time.Now()
	block, err := client.BlockNumber(ctx)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	res.BlockNumber = block

	if wantChainID != nil {
		id, err := client.ChainID(ctx)
		if err != nil {
			res.Err = err
			return res
		}
		res.ChainID = id
		if id.Cmp(wantChainID) != 0 {
			res.Err = fmt.Errorf("%w: got %s, want %s", ErrWrongChain, id, wantChainID)
		}
	}
	return res
}

// Benchmark probes all urls in parallel. Results keep the order of urls.
func Benchmark(ctx context.Context, urls []string, wantChainID *big.Int, timeout time.Duration) []BenchmarkResult {
	results := make([]BenchmarkResult, len(urls))
	var g errgroup.Group
	g.SetLimit(probeConcurrency)
	for i, url := range urls {
		g.Go(func() error {
			results[i] = Probe(ctx, url, wantChainID, timeout)
			return nil
		})
	}
	_ = g.Wait() // probes report through results
	return results
}

// ResultsToEndpoints converts benchmark results to picker Endpoints.
// All returned endpoints have Checked: true since they have been actively tested.
func ResultsToEndpoints(results []BenchmarkResult) []Endpoint {
	endpoints := make([]Endpoint, 0, len(results))
	for _, r := range results {
		endpoints = append(endpoints, Endpoint{
			URL:         r.URL,
			Latency:     r.Latency,
			BlockNumber: r.BlockNumber,
			Healthy:     r.Err == nil,
			Checked:     true,
		})
	}
	return endpoints
}
