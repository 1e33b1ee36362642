package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/cryptopet/internal/config"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
)

const newAddr = "0x1111111111111111111111111111111111111111"

// ─── helpers ──────────────────────────────────────────────────────────────────

func testSyncer(t *testing.T) (*Syncer, *config.Config, *contract.Registry) {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	reg := contract.NewRegistry(filepath.Join(t.TempDir(), "deployments.json"))
	return New(cfg, reg, nil), cfg, reg
}

func manifestServer(t *testing.T, m Manifest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func abiServer(t *testing.T, abiJSON string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(abiJSON)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pet(entries map[string]ManifestEntry) Manifest {
	return Manifest{Contracts: map[string]map[string]ManifestEntry{ContractName: entries}}
}

// ─── Manifest struct JSON parsing ─────────────────────────────────────────────

func TestManifestParseValid(t *testing.T) {
	data := `{
		"contracts": {
			"CryptoPet": {
				"sepolia": {
					"address": "0x802988D2A33F3e53bc1485e4C9555528499D66D1",
					"abi_url": "https://example.com/abi.json"
				}
			}
		}
	}`

	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(data), &m))

	require.Contains(t, m.Contracts, ContractName)
	assert.Equal(t, "0x802988D2A33F3e53bc1485e4C9555528499D66D1", m.Contracts[ContractName]["sepolia"].Address)
	assert.Equal(t, "https://example.com/abi.json", m.Contracts[ContractName]["sepolia"].ABIUrl)
}

func TestManifestParseInvalid(t *testing.T) {
	var m Manifest
	require.Error(t, json.Unmarshal([]byte(`{not valid json`), &m))
}

// ─── fetchManifest ────────────────────────────────────────────────────────────

func TestFetchManifestInvalidJSON(t *testing.T) {
	srv := abiServer(t, `{not json}`)

	s, _, _ := testSyncer(t)
	_, err := s.fetchManifest(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing manifest")
}

func TestFetchManifestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s, _, _ := testSyncer(t)
	_, err := s.fetchManifest(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchManifestConnectionError(t *testing.T) {
	s, _, _ := testSyncer(t)
	_, err := s.fetchManifest(context.Background(), "http://127.0.0.1:19993")
	require.Error(t, err)
}

// ─── SetSource / Run ──────────────────────────────────────────────────────────

func TestSetSourceSavesURL(t *testing.T) {
	s, cfg, _ := testSyncer(t)

	const testURL = "https://example.com/deployments.json"
	require.NoError(t, s.SetSource(testURL))

	syncCfg, err := cfg.LoadSync()
	require.NoError(t, err)
	assert.Equal(t, testURL, syncCfg.Source)
}

func TestRunNoSourceConfigured(t *testing.T) {
	// sync.json doesn't exist → LoadSync returns empty SyncConfig with Source="".
	s, _, _ := testSyncer(t)

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestRunSuccessUpdatesRegistry(t *testing.T) {
	abiSrv := abiServer(t, contract.PetABIJSON)
	mSrv := manifestServer(t, pet(map[string]ManifestEntry{
		"sepolia": {Address: newAddr, ABIUrl: abiSrv.URL},
	}))

	s, _, reg := testSyncer(t)
	require.NoError(t, s.SetSource(mSrv.URL))
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	assert.Empty(t, res.Skipped)

	got, err := reg.Get("sepolia")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(newAddr), got)

	// persisted
	reloaded := contract.NewRegistry(reg.Path())
	require.NoError(t, reloaded.Load())
	got, err = reloaded.Get("sepolia")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(newAddr), got)
}

func TestRunSkipsBadEntries(t *testing.T) {
	wrongABI := abiServer(t, `[{"name":"transfer","type":"function","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]`)
	mSrv := manifestServer(t, pet(map[string]ManifestEntry{
		"ethereum":          {Address: "not-an-address"},
		"solana":            {Address: newAddr},
		"westend-asset-hub": {Address: newAddr, ABIUrl: wrongABI.URL},
	}))

	s, _, reg := testSyncer(t)
	require.NoError(t, s.SetSource(mSrv.URL))
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Updated)
	assert.Len(t, res.Skipped, 3)
	assert.Equal(t, "unsupported chain", res.Skipped["solana"])
	assert.Contains(t, res.Skipped["westend-asset-hub"], "abi does not match")

	got, err := reg.Get("westend-asset-hub")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(contract.DefaultAddress), got)
	_, err = reg.Get("ethereum")
	assert.ErrorIs(t, err, contract.ErrDeploymentNotFound)
}

func TestRunABIFetchFailureContinues(t *testing.T) {
	// ABIUrl is unreachable → warning is logged, but the address is still set.
	mSrv := manifestServer(t, pet(map[string]ManifestEntry{
		"sepolia": {Address: newAddr, ABIUrl: "http://127.0.0.1:19992/no-abi"},
	}))

	s, _, reg := testSyncer(t)
	require.NoError(t, s.SetSource(mSrv.URL))
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	got, err := reg.Get("sepolia")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(newAddr), got)
}

func TestRunIgnoresOtherContracts(t *testing.T) {
	mSrv := manifestServer(t, Manifest{Contracts: map[string]map[string]ManifestEntry{
		"USDC": {"sepolia": {Address: newAddr}},
	}})

	s, _, reg := testSyncer(t)
	require.NoError(t, s.SetSource(mSrv.URL))
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Updated)

	got, _ := reg.Get("sepolia")
	assert.Equal(t, common.HexToAddress(contract.DefaultAddress), got)
}

func TestRunUpdatesLastSynced(t *testing.T) {
	// Empty manifest still updates LastSynced.
	mSrv := manifestServer(t, Manifest{})

	s, cfg, _ := testSyncer(t)
	require.NoError(t, s.SetSource(mSrv.URL))

	before := time.Now().Add(-time.Second)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	syncCfg, err := cfg.LoadSync()
	require.NoError(t, err)
	require.NotEmpty(t, syncCfg.LastSynced)

	ts, err := time.Parse(time.RFC3339, syncCfg.LastSynced)
	require.NoError(t, err)
	assert.True(t, ts.After(before), "LastSynced should be after test start")
}
