package config

// Config holds all cryptopet configuration.
type Config struct {
	TargetChain     string              `json:"target_chain"     mapstructure:"target_chain"`
	ContractAddress string              `json:"contract_address" mapstructure:"contract_address"` // overrides deployments.json
	DefaultWallet   string              `json:"default_wallet"   mapstructure:"default_wallet"`
	RPCAlgorithm    string              `json:"rpc_algorithm"    mapstructure:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	CustomRPCs      map[string][]string `json:"custom_rpcs"      mapstructure:"custom_rpcs"`
	IPFSGateway     string              `json:"ipfs_gateway"     mapstructure:"ipfs_gateway"`
	LogLevel        string              `json:"log_level"        mapstructure:"log_level"`
	WatchInterval   int                 `json:"watch_interval"   mapstructure:"watch_interval"` // seconds

	// internal: config dir path used for Save()
	configDir string
}

// SyncConfig is the structure of sync.json.
type SyncConfig struct {
	Source     string `json:"source"`
	LastSynced string `json:"last_synced"`
}
