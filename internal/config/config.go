package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

// EnvDir overrides the default config directory.
const EnvDir = "CRYPTOPET_CONFIG_DIR"

const (
	defaultTarget    = chain.Sepolia
	defaultAlgorithm = "fastest"
	defaultGateway   = "https://ipfs.io/ipfs/"
	defaultLogLevel  = "info"
	defaultInterval  = 15

	configFile      = "config.json"
	walletsFile     = "wallets.json"
	permissionsFile = "permissions.json"
	chainsFile      = "wallet_chains.json"
	deploymentsFile = "deployments.json"
	syncFile        = "sync.json"
	keysDir         = "keys"
)

// Keys lists the settings `config set` accepts.
var Keys = []string{
	"target_chain", "contract_address", "default_wallet", "rpc_algorithm",
	"ipfs_gateway", "log_level", "watch_interval",
}

// Load reads config from dir (or creates defaults). dir defaults to
// $CRYPTOPET_CONFIG_DIR, then ~/.cryptopet.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".cryptopet")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if cfg.TargetChain == "" {
		cfg.TargetChain = defaultTarget
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Set updates one of Keys from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "target_chain":
		if _, err := chain.NewRegistry().GetByName(value); err != nil {
			return err
		}
		c.TargetChain = value
	case "contract_address":
		c.ContractAddress = value
	case "default_wallet":
		c.DefaultWallet = value
	case "rpc_algorithm":
		switch value {
		case "fastest", "round-robin", "failover":
		default:
			return fmt.Errorf("invalid rpc_algorithm %q (choose: fastest, round-robin, failover)", value)
		}
		c.RPCAlgorithm = value
	case "ipfs_gateway":
		if value != "" && !strings.HasSuffix(value, "/") {
			value += "/"
		}
		c.IPFSGateway = value
	case "log_level":
		if _, err := zapcore.ParseLevel(value); err != nil {
			return fmt.Errorf("invalid log_level %q", value)
		}
		c.LogLevel = value
	case "watch_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("watch_interval must be a positive number of seconds, got %q", value)
		}
		c.WatchInterval = n
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Interval returns the watch refresh interval.
func (c *Config) Interval() time.Duration {
	if c.WatchInterval <= 0 {
		return defaultInterval * time.Second
	}
	return time.Duration(c.WatchInterval) * time.Second
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is where wallet accounts are stored.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// PermissionsPath is where per-origin account grants are stored.
func (c *Config) PermissionsPath() string { return filepath.Join(c.configDir, permissionsFile) }

// ChainsPath is where the wallet's known and active chains are stored.
func (c *Config) ChainsPath() string { return filepath.Join(c.configDir, chainsFile) }

// DeploymentsPath is where pet contract deployments are stored.
func (c *Config) DeploymentsPath() string { return filepath.Join(c.configDir, deploymentsFile) }

// KeysDir holds the file keyring used when no OS keychain is available.
func (c *Config) KeysDir() string { return filepath.Join(c.configDir, keysDir) }

// LoadSync reads sync.json.
func (c *Config) LoadSync() (*SyncConfig, error) {
	return loadJSON[SyncConfig](filepath.Join(c.configDir, syncFile))
}

// SaveSync writes sync.json.
func (c *Config) SaveSync(sc *SyncConfig) error {
	return saveJSON(filepath.Join(c.configDir, syncFile), sc)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		TargetChain:   defaultTarget,
		RPCAlgorithm:  defaultAlgorithm,
		IPFSGateway:   defaultGateway,
		LogLevel:      defaultLogLevel,
		WatchInterval: defaultInterval,
		CustomRPCs:    make(map[string][]string),
		configDir:     dir,
	}
}

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
