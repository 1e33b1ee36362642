// check-deployments: reads the mint price and pet count of every built-in
// CryptoPet deployment in parallel and prints a summary table. Addresses
// given as arguments also get their pet count per chain.
//
// Run from the module root:
//
//	go run ./scripts/check-deployments [owner...]
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/rpc"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

const rpcTimeout = 12 * time.Second

// ── types ─────────────────────────────────────────────────────────────────────

type result struct {
	chain   string
	address string // short form
	rpc     string
	price   string
	owner   string // short form, empty for the price row
	pets    string
	err     string
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	chains := chain.NewRegistry()
	owners := os.Args[1:]

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)

	for _, d := range contract.NewRegistry("").All() {
		target, err := chains.GetByName(d.Chain)
		if err != nil {
			continue
		}

		wg.Add(1)
		go func(slug string, target chain.Descriptor, addr common.Address) {
			defer wg.Done()
			rows := check(slug, target, addr, owners)
			mu.Lock()
			results = append(results, rows...)
			mu.Unlock()
		}(d.Chain, target, common.HexToAddress(d.Address))
	}

	wg.Wait()

	printTable(results)
}

func check(slug string, target chain.Descriptor, addr common.Address, owners []string) []result {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	base := result{chain: slug, address: shortAddr(addr.Hex()), price: "—"}
	client, url, err := rpc.NewFallback(rpc.AlgorithmFastest, nil).Dial(ctx, target, nil)
	if err != nil {
		base.err = "unreachable"
		return []result{base}
	}
	defer client.Close()
	base.rpc = url

	f := contract.NewDeriver(addr, target, nil).Derive(client, nil, false)
	price, err := f.MintPrice(ctx)
	if err != nil {
		base.err = shortErr(err)
		return []result{base}
	}
	c := target.NativeCurrency
	base.price = ui.FormatAmount(price, c.Decimals, c.Symbol)

	rows := []result{base}
	for _, o := range owners {
		r := result{chain: slug, owner: shortAddr(o), pets: "—"}
		if !common.IsHexAddress(o) {
			r.err = "invalid address"
		} else if ids, err := f.GetPetsByOwner(ctx, common.HexToAddress(o)); err != nil {
			r.err = shortErr(err)
		} else {
			r.pets = fmt.Sprintf("%d", len(ids))
		}
		rows = append(rows, r)
	}
	return rows
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	// Sort by chain, price row first, then owner.
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.chain != b.chain {
			return a.chain < b.chain
		}
		return a.owner < b.owner
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "CHAIN\tCONTRACT\tMINT PRICE\tOWNER\tPETS\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 18)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 4)+"\t"+
		strings.Repeat("-", 12))

	for _, r := range results {
		note := r.err
		if note == "" && r.rpc != "" {
			note = "via " + r.rpc
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.chain, r.address, r.price, r.owner, r.pets, note)
	}
	w.Flush()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
