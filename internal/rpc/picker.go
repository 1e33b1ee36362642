// Package rpc picks the public JSON-RPC endpoint used for reads when no
// wallet is connected.
package rpc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"
)

// Endpoints more than staleBlocks behind the highest one are never fastest.
const staleBlocks = 3

// ParseAlgorithm validates a configured algorithm name. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	default:
		return "", fmt.Errorf("unknown rpc algorithm %q (want fastest, round-robin or failover)", s)
	}
}

// Endpoint is a candidate URL with what a probe measured. Healthy is only
// meaningful once Checked is set; unchecked endpoints stay candidates.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Healthy     bool
	Checked     bool
}

func (e *Endpoint) usable() bool { return !e.Checked || e.Healthy }

// Picker chooses one endpoint per call. Only round-robin keeps state between
// calls.
type Picker struct {
	algo Algorithm

	mu   sync.Mutex
	next int
}

// NewPicker creates a new Picker with the given algorithm.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo}
}

// Algorithm returns the picker's algorithm.
func (p *Picker) Algorithm() Algorithm {
	return p.algo
}

// Pick selects from endpoints. Endpoints checked and found unhealthy are
// skipped by every algorithm; failover takes the first remaining one in
// order.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	var usable []*Endpoint
	for i := range endpoints {
		if endpoints[i].usable() {
			usable = append(usable, &endpoints[i])
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoHealthyRPC
	}

	switch p.algo {
	case AlgorithmFailover:
		return usable[0], nil
	case AlgorithmRoundRobin:
		p.mu.Lock()
		defer p.mu.Unlock()
		e := usable[p.next%len(usable)]
		p.next = (p.next + 1) % len(usable)
		return e, nil
	default:
		return fastest(usable), nil
	}
}

// fastest drops stale endpoints, then takes the lowest measured latency.
// The highest endpoint is never stale, so the result is non-nil.
func fastest(usable []*Endpoint) *Endpoint {
	var head uint64
	for _, e := range usable {
		head = max(head, e.BlockNumber)
	}
	var winner *Endpoint
	for _, e := range usable {
		if head-e.BlockNumber > staleBlocks {
			continue
		}
		if winner == nil || faster(e, winner) {
			winner = e
		}
	}
	return winner
}

// faster orders by latency, unmeasured last, then by height.
func faster(a, b *Endpoint) bool {
	switch {
	case a.Latency == b.Latency:
		return a.BlockNumber > b.BlockNumber
	case a.Latency == 0:
		return false
	case b.Latency == 0:
		return true
	default:
		return a.Latency < b.Latency
	}
}
