// fork from github.com/tendermint/tendermint/config/config.go
package config

import (
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"ledgercore/types"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// DefaultLogLevel defines a default log level as INFO.
	DefaultLogLevel = "info"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
var (
	DefaultLedgerDir  = ".ledgercore"
	defaultConfigDir  = "config"
	defaultDataDir    = "data"
	defaultConfigFile = "config.toml"

	defaultNodeKeyName = "node_key.json"
	defaultPeersName   = "peers.json"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFile)
	defaultNodeKeyPath    = filepath.Join(defaultConfigDir, defaultNodeKeyName)
	defaultPeersPath      = filepath.Join(defaultConfigDir, defaultPeersName)
)

// Config defines the top level configuration for a ledgercore node
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	RPC             *RPCConfig             `mapstructure:"rpc"`
	Consensus       *ConsensusConfig       `mapstructure:"consensus"`
	Ordering        *OrderingConfig        `mapstructure:"ordering"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a ledgercore node
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		RPC:             DefaultRPCConfig(),
		Consensus:       DefaultConsensusConfig(),
		Ordering:        DefaultOrderingConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		RPC:             TestRPCConfig(),
		Consensus:       TestConsensusConfig(),
		Ordering:        TestOrderingConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns every error found.
func (cfg *Config) ValidateBasic() error {
	var result *multierror.Error
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := cfg.RPC.ValidateBasic(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error in [rpc] section"))
	}
	if err := cfg.Consensus.ValidateBasic(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error in [consensus] section"))
	}
	if err := cfg.Ordering.ValidateBasic(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error in [ordering] section"))
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error in [instrumentation] section"))
	}
	return result.ErrorOrNil()
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a ledgercore node
type BaseConfig struct {
	// chainID is unexposed and immutable but here for convenience
	ChainID string `mapstructure:"chain_id"`

	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`

	// Path to the JSON file containing the private key of this node
	NodeKey string `mapstructure:"node_key_file"`

	// Path to the JSON file containing the peers voting in consensus
	Peers string `mapstructure:"peers_file"`
}

// DefaultBaseConfig returns a default base configuration for a ledgercore node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		ChainID:   "ledgercore-chain",
		Moniker:   "anonymous",
		DBBackend: "goleveldb",
		DBPath:    "data",
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
		NodeKey:   defaultNodeKeyPath,
		Peers:     defaultPeersPath,
	}
}

// TestBaseConfig returns a base configuration for testing a ledgercore node
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.ChainID = "ledgercore_test"
	cfg.DBBackend = "memdb"
	return cfg
}

// NodeKeyFile returns the full path to the node_key.json file
func (cfg BaseConfig) NodeKeyFile() string {
	return rootify(cfg.NodeKey, cfg.RootDir)
}

// PeersFile returns the full path to the peers.json file
func (cfg BaseConfig) PeersFile() string {
	return rootify(cfg.Peers, cfg.RootDir)
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ConfigFile returns the full path to the config.toml file
func (cfg BaseConfig) ConfigFile() string {
	return rootify(defaultConfigFilePath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	var result *multierror.Error
	if cfg.ChainID == "" {
		result = multierror.Append(result, errors.New("chain_id can't be empty"))
	}
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		result = multierror.Append(result, errors.New("unknown log_format (must be 'plain' or 'json')"))
	}
	switch cfg.DBBackend {
	case "goleveldb", "memdb":
	default:
		result = multierror.Append(result, errors.Errorf("unsupported db_backend %q", cfg.DBBackend))
	}
	return result.ErrorOrNil()
}

//-----------------------------------------------------------------------------
// RPCConfig

// RPCConfig defines the configuration options for the JSON-RPC server
type RPCConfig struct {
	// TCP or UNIX socket address for the RPC server to listen on
	ListenAddress string `mapstructure:"laddr"`

	// Maximum number of simultaneous connections.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max_open_connections"`

	// Maximum size of request body, in bytes
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	// Maximum size of request header, in bytes
	MaxHeaderBytes int `mapstructure:"max_header_bytes"`
}

// DefaultRPCConfig returns a default configuration for the RPC server
func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		ListenAddress:      "tcp://127.0.0.1:26657",
		MaxOpenConnections: 900,
		MaxBodyBytes:       int64(1000000), // 1MB
		MaxHeaderBytes:     1 << 20,        // same as the net/http default
	}
}

// TestRPCConfig returns a configuration for testing the RPC server
func TestRPCConfig() *RPCConfig {
	cfg := DefaultRPCConfig()
	cfg.ListenAddress = "tcp://127.0.0.1:36657"
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *RPCConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max_open_connections can't be negative")
	}
	if cfg.MaxBodyBytes < 0 {
		return errors.New("max_body_bytes can't be negative")
	}
	if cfg.MaxHeaderBytes < 0 {
		return errors.New("max_header_bytes can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// ConsensusConfig

// ConsensusConfig defines the configuration for vote aggregation
type ConsensusConfig struct {
	// bft | cft
	ConsistencyModel string `mapstructure:"consistency_model"`

	// Number of rounds whose vote state is retained after they are decided
	VoteStorageSize int `mapstructure:"vote_storage_size"`

	// Capacity of the incoming vote queue
	VoteQueueSize int `mapstructure:"vote_queue_size"`
}

// DefaultConsensusConfig returns a default configuration for the consensus service
func DefaultConsensusConfig() *ConsensusConfig {
	return &ConsensusConfig{
		ConsistencyModel: "bft",
		VoteStorageSize:  10,
		VoteQueueSize:    1000,
	}
}

// TestConsensusConfig returns a configuration for testing the consensus service
func TestConsensusConfig() *ConsensusConfig {
	cfg := DefaultConsensusConfig()
	cfg.VoteStorageSize = 4
	cfg.VoteQueueSize = 10
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *ConsensusConfig) ValidateBasic() error {
	var result *multierror.Error
	switch cfg.ConsistencyModel {
	case "bft", "cft":
	default:
		result = multierror.Append(result, errors.Errorf("unknown consistency_model %q (must be 'bft' or 'cft')", cfg.ConsistencyModel))
	}
	if cfg.VoteStorageSize < 1 {
		result = multierror.Append(result, errors.New("vote_storage_size must be positive"))
	}
	if cfg.VoteQueueSize < 0 {
		result = multierror.Append(result, errors.New("vote_queue_size can't be negative"))
	}
	return result.ErrorOrNil()
}

//-----------------------------------------------------------------------------
// OrderingConfig

// OrderingConfig defines the configuration for the on-demand ordering service
type OrderingConfig struct {
	// Maximum number of transactions packed into one proposal
	TransactionLimit int `mapstructure:"transaction_limit"`

	// Number of proposals kept for peers to request
	NumberOfProposals int `mapstructure:"number_of_proposals"`

	// Size of the replay cache of in-flight batches
	ReplayCacheSize int `mapstructure:"replay_cache_size"`

	// Allow proposals without transactions
	AllowEmptyProposals bool `mapstructure:"allow_empty_proposals"`

	// The first round after genesis
	InitialBlockRound  uint64 `mapstructure:"initial_block_round"`
	InitialRejectRound uint32 `mapstructure:"initial_reject_round"`
}

// DefaultOrderingConfig returns a default configuration for the ordering service
func DefaultOrderingConfig() *OrderingConfig {
	return &OrderingConfig{
		TransactionLimit:    1000,
		NumberOfProposals:   3,
		ReplayCacheSize:     10000,
		AllowEmptyProposals: false,
		InitialBlockRound:   2,
		InitialRejectRound:  0,
	}
}

// TestOrderingConfig returns a configuration for testing the ordering service
func TestOrderingConfig() *OrderingConfig {
	cfg := DefaultOrderingConfig()
	cfg.TransactionLimit = 5
	cfg.ReplayCacheSize = 100
	return cfg
}

// InitialRound 创世块之后的第一个round
func (cfg *OrderingConfig) InitialRound() types.Round {
	return types.NewRound(cfg.InitialBlockRound, cfg.InitialRejectRound)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *OrderingConfig) ValidateBasic() error {
	var result *multierror.Error
	if cfg.TransactionLimit <= 0 {
		result = multierror.Append(result, errors.New("transaction_limit must be positive"))
	}
	if cfg.NumberOfProposals < 1 {
		result = multierror.Append(result, errors.New("number_of_proposals must be positive"))
	}
	if cfg.ReplayCacheSize < 1 {
		result = multierror.Append(result, errors.New("replay_cache_size must be positive"))
	}
	return result.ErrorOrNil()
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Maximum number of simultaneous connections.
	// If you want to accept a larger number than the default, make sure
	// you increase your OS limits.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max_open_connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "ledgercore",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max_open_connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
