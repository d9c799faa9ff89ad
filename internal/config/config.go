// Package config loads the strategist's per-domain configuration: TOML
// files named by environment variables plus the secrets (mnemonic, API
// keys) that never belong in a file on disk, grounded on the teacher's
// aggregator/attestor TOML config style (e2e/interchaintestv8/aggregator/config.go,
// e2e/interchaintestv8/attestor/config.go) and spec.md §3/§6.
package config

import (
	"fmt"
	"os"
	"time"

	"cosmossdk.io/math"
	"github.com/BurntSushi/toml"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
)

// ChainConfig is the common shape of one domain's connection and contract
// details, per spec.md §3: "RPC endpoints, chain identifiers, contract
// addresses ..., denom strings". Every per-chain TOML file
// (NEUTRON_CFG_PATH, ETHEREUM_CFG_PATH, GAIA_CFG_PATH, LOMBARD_CFG_PATH)
// deserializes into one of these.
type ChainConfig struct {
	ChainID   string            `toml:"chain_id"`
	RPCAddr   string            `toml:"rpc_addr"`
	GRPCAddr  string            `toml:"grpc_addr,omitempty"`
	GasDenom  string            `toml:"gas_denom,omitempty"`
	Contracts map[string]string `toml:"contracts"`
	Accounts  map[string]string `toml:"accounts"`
	Denoms    map[string]string `toml:"denoms"`
	// Tunables is only populated on the Ethereum config, the domain that
	// owns the vault whose rate and IBC threshold these tunables govern.
	Tunables Tunables `toml:"tunables,omitempty"`
}

// CoprocessorConfig is the zk proving service's connection details,
// deserialized from COPROCESSOR_CFG_PATH.
type CoprocessorConfig struct {
	BaseURL string `toml:"base_url"`
}

// Tunables mirrors spec.md §3's "per-strategy tunables".
type Tunables struct {
	IBCTransferThreshold string  `toml:"ibc_transfer_threshold"`
	RateScalingFactor    string  `toml:"rate_scaling_factor"`
	MaxRateIncrementBps  uint32  `toml:"max_rate_inc_bps"`
	MaxRateDecrementBps  uint32  `toml:"max_rate_dec_bps"`
	ICAPollFraction      float64 `toml:"ica_poll_fraction"`
}

// parseInt converts one TOML string-encoded integer tunable into a math.Int,
// failing closed on an unparsable value rather than defaulting it.
func (t Tunables) parseInt(field, value string) (math.Int, error) {
	i, ok := math.NewIntFromString(value)
	if !ok {
		return math.Int{}, fmt.Errorf("%w: tunables.%s: invalid integer %q", errs.Config, field, value)
	}
	return i, nil
}

// StrategyConfig is the full per-strategy configuration: every domain's
// ChainConfig, the coprocessor, and the tunables, built once at startup and
// shared by reference thereafter (spec.md §3: "constructed once at startup
// from persisted files ... never mutated").
type StrategyConfig struct {
	Label       string
	Mnemonic    string
	Neutron     ChainConfig
	Ethereum    ChainConfig
	Gaia        ChainConfig
	Lombard     ChainConfig
	Coprocessor CoprocessorConfig

	IndexerAPIURL string
	IndexerAPIKey string
	EurekaAPIURL  string

	StrategyTimeout time.Duration
	OTLPEndpoint    string

	IBCTransferThreshold math.Int
	RateScalingFactor    math.Int
	MaxRateIncrementBps  uint32
	MaxRateDecrementBps  uint32
	ICAPollFraction      math.LegacyDec
}

// The constants below name the required and optional environment variables
// of spec.md §6.
const (
	envMnemonic        = "MNEMONIC"
	envLabel           = "LABEL"
	envIndexerAPIKey   = "INDEXER_API_KEY"
	envIndexerAPIURL   = "INDEXER_API_URL"
	envEurekaAPIURL    = "EUREKA_API_URL"
	envStrategyTimeout = "STRATEGY_TIMEOUT"
	envOTLPEndpoint    = "OTLP_ENDPOINT"
	envNeutronCfgPath  = "NEUTRON_CFG_PATH"
	envEthereumCfgPath = "ETHEREUM_CFG_PATH"
	envGaiaCfgPath     = "GAIA_CFG_PATH"
	envLombardCfgPath  = "LOMBARD_CFG_PATH"
	envCoprocessorPath = "COPROCESSOR_CFG_PATH"
)

// Load reads every environment variable named in spec.md §6, parses the
// TOML file at each *_CFG_PATH, and returns the assembled StrategyConfig.
// Any missing required variable or unparsable file is a fatal
// errs.Config-wrapped error, matching the CLI's "non-zero on fatal init
// failure" contract (spec.md §6).
func Load() (StrategyConfig, error) {
	mnemonic, err := requireEnv(envMnemonic)
	if err != nil {
		return StrategyConfig{}, err
	}
	label, err := requireEnv(envLabel)
	if err != nil {
		return StrategyConfig{}, err
	}

	cfg := StrategyConfig{
		Label:         label,
		Mnemonic:      mnemonic,
		IndexerAPIKey: os.Getenv(envIndexerAPIKey),
		IndexerAPIURL: os.Getenv(envIndexerAPIURL),
		EurekaAPIURL:  os.Getenv(envEurekaAPIURL),
		OTLPEndpoint:  os.Getenv(envOTLPEndpoint),
	}

	timeoutStr, err := requireEnv(envStrategyTimeout)
	if err != nil {
		return StrategyConfig{}, err
	}
	cfg.StrategyTimeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return StrategyConfig{}, fmt.Errorf("%w: %s: %v", errs.Config, envStrategyTimeout, err)
	}

	if err := loadChainConfig(envNeutronCfgPath, &cfg.Neutron); err != nil {
		return StrategyConfig{}, err
	}
	if err := loadChainConfig(envEthereumCfgPath, &cfg.Ethereum); err != nil {
		return StrategyConfig{}, err
	}
	if err := loadChainConfig(envGaiaCfgPath, &cfg.Gaia); err != nil {
		return StrategyConfig{}, err
	}
	if err := loadChainConfig(envLombardCfgPath, &cfg.Lombard); err != nil {
		return StrategyConfig{}, err
	}

	coprocessorPath, err := requireEnv(envCoprocessorPath)
	if err != nil {
		return StrategyConfig{}, err
	}
	if _, err := toml.DecodeFile(coprocessorPath, &cfg.Coprocessor); err != nil {
		return StrategyConfig{}, fmt.Errorf("%w: decode %s: %v", errs.Config, coprocessorPath, err)
	}

	if err := cfg.applyTunables(cfg.Ethereum.Tunables); err != nil {
		return StrategyConfig{}, err
	}

	return cfg, nil
}

func (cfg *StrategyConfig) applyTunables(t Tunables) error {
	threshold, err := t.parseInt("ibc_transfer_threshold", t.IBCTransferThreshold)
	if err != nil {
		return err
	}
	scaling, err := t.parseInt("rate_scaling_factor", t.RateScalingFactor)
	if err != nil {
		return err
	}
	cfg.IBCTransferThreshold = threshold
	cfg.RateScalingFactor = scaling
	cfg.MaxRateIncrementBps = t.MaxRateIncrementBps
	cfg.MaxRateDecrementBps = t.MaxRateDecrementBps
	cfg.ICAPollFraction = math.LegacyMustNewDecFromStr(fmt.Sprintf("%v", t.ICAPollFraction))
	return nil
}

func loadChainConfig(envVar string, out *ChainConfig) error {
	path, err := requireEnv(envVar)
	if err != nil {
		return err
	}
	if _, err := toml.DecodeFile(path, out); err != nil {
		return fmt.Errorf("%w: decode %s (%s): %v", errs.Config, envVar, path, err)
	}
	return nil
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%w: required environment variable %s is unset", errs.Config, name)
	}
	return v, nil
}
