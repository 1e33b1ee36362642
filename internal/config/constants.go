package config

import "time"

// Timeout constants used across cmd. Wallet prompts and confirmation waits
// have none; they end with the command's context (Ctrl+C).
const (
	RPCSelectTimeout = 10 * time.Second // fallback RPC benchmark
	FetchTimeout     = 30 * time.Second // pet list refresh
	SyncTimeout      = 15 * time.Second // deployments manifest download
)
