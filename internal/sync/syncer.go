// Package sync refreshes pet contract deployments from a remote manifest.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/config"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
)

// ContractName is the manifest key the pet contract is published under.
const ContractName = "CryptoPet"

// ErrNoSource is returned by Run when sync.json has no source URL.
var ErrNoSource = errors.New("no sync source configured, run: cryptopet contract sync --source <url>")

// Manifest is the structure of a deployments.json manifest.
type Manifest struct {
	Contracts map[string]map[string]ManifestEntry `json:"contracts"`
}

// ManifestEntry is a single contract deployment entry.
type ManifestEntry struct {
	Address string `json:"address"`
	ABIUrl  string `json:"abi_url,omitempty"`
}

// Result summarizes one Run.
type Result struct {
	Updated []contract.Deployment
	Skipped map[string]string // chain slug -> reason
}

// Syncer handles fetching and updating deployments from a remote manifest.
type Syncer struct {
	cfg    *config.Config
	reg    *contract.Registry
	chains *chain.Registry
	client *http.Client
	log    *zap.Logger
}

// New creates a new Syncer.
func New(cfg *config.Config, reg *contract.Registry, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		cfg:    cfg,
		reg:    reg,
		chains: chain.NewRegistry(),
		client: &http.Client{Timeout: config.SyncTimeout},
		log:    log.Named("sync"),
	}
}

// Run fetches the manifest from the configured source and updates the
// deployment registry. Entries for unknown chains, with bad addresses or with
// an ABI missing the pet methods are skipped.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	syncCfg, err := s.cfg.LoadSync()
	if err != nil {
		return nil, fmt.Errorf("loading sync config: %w", err)
	}
	if syncCfg.Source == "" {
		return nil, ErrNoSource
	}

	manifest, err := s.fetchManifest(ctx, syncCfg.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}

	res := &Result{Skipped: make(map[string]string)}
	for slug, entry := range manifest.Contracts[ContractName] {
		if _, err := s.chains.GetByName(slug); err != nil {
			res.Skipped[slug] = "unsupported chain"
			continue
		}
		if entry.ABIUrl != "" {
			if err := s.checkABI(ctx, entry.ABIUrl); errors.Is(err, errABIMismatch) {
				res.Skipped[slug] = err.Error()
				continue
			} else if err != nil {
				s.log.Warn("could not fetch abi, keeping address", zap.String("chain", slug), zap.Error(err))
			}
		}
		if err := s.reg.Set(slug, entry.Address); err != nil {
			res.Skipped[slug] = err.Error()
			continue
		}
		d := contract.Deployment{Chain: slug, Address: entry.Address}
		res.Updated = append(res.Updated, d)
		s.log.Info("deployment updated", zap.String("chain", slug), zap.String("address", entry.Address))
	}
	for slug, reason := range res.Skipped {
		s.log.Warn("deployment skipped", zap.String("chain", slug), zap.String("reason", reason))
	}

	if err := s.reg.Save(); err != nil {
		return nil, fmt.Errorf("saving deployments: %w", err)
	}

	// Update last synced timestamp.
	syncCfg.LastSynced = time.Now().UTC().Format(time.RFC3339)
	return res, s.cfg.SaveSync(syncCfg)
}

// SetSource sets the remote manifest URL.
func (s *Syncer) SetSource(url string) error {
	syncCfg, err := s.cfg.LoadSync()
	if err != nil {
		return err
	}
	syncCfg.Source = url
	return s.cfg.SaveSync(syncCfg)
}

func (s *Syncer) fetchManifest(ctx context.Context, url string) (*Manifest, error) {
	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

var errABIMismatch = errors.New("abi does not match the pet contract")

// checkABI verifies the published ABI exposes every method the client calls
// with the same selector.
func (s *Syncer) checkABI(ctx context.Context, url string) error {
	body, err := s.get(ctx, url)
	if err != nil {
		return err
	}
	published, err := abi.JSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", errABIMismatch, err)
	}
	for name, want := range contract.PetABI.Methods {
		got, ok := published.Methods[name]
		if !ok || !bytes.Equal(got.ID, want.ID) {
			return fmt.Errorf("%w: missing %s", errABIMismatch, want.Sig)
		}
	}
	return nil
}

func (s *Syncer) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
