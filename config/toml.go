// fork from github.com/tendermint/tendermint/config/toml.go
package config

import (
	"bytes"
	"path/filepath"
	"text/template"

	tmos "github.com/tendermint/tendermint/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate")
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't exist,
// and panics if it fails.
func EnsureRoot(rootDir string) {
	if err := tmos.EnsureDir(rootDir, DefaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), DefaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), DefaultDirPerm); err != nil {
		panic(err.Error())
	}

	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)

	// Write default config file if missing.
	if !tmos.FileExists(configFilePath) {
		writeDefaultConfigFile(configFilePath)
	}
}

// XXX: this func should probably be called by cmd/ledgercore/commands/init.go
// alongside the writing of the node key and peers
func writeDefaultConfigFile(configFilePath string) {
	WriteConfigFile(configFilePath, DefaultConfig())
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
func WriteConfigFile(configFilePath string, config *Config) {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}

	tmos.MustWriteFile(configFilePath, buffer.Bytes(), 0644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/myawesomeapp/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.ledgercore" by default, but could be changed via $LC_HOME env variable
# or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

chain_id = "{{ .BaseConfig.ChainID }}"

# A custom human readable name for this node
moniker = "{{ .BaseConfig.Moniker }}"

# Database backend: goleveldb | memdb
db_backend = "{{ .BaseConfig.DBBackend }}"

# Database directory
db_dir = "{{ js .BaseConfig.DBPath }}"

# Output level for logging, including package level options
log_level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log_format = "{{ .BaseConfig.LogFormat }}"

# Path to the JSON file containing the private key of this node
node_key_file = "{{ js .BaseConfig.NodeKey }}"

# Path to the JSON file containing the peers voting in consensus
peers_file = "{{ js .BaseConfig.Peers }}"

#######################################################################
###                 Advanced Configuration Options                  ###
#######################################################################

#######################################################
###       RPC Server Configuration Options          ###
#######################################################
[rpc]

# TCP or UNIX socket address for the RPC server to listen on
laddr = "{{ .RPC.ListenAddress }}"

# Maximum number of simultaneous connections.
# 0 - unlimited.
max_open_connections = {{ .RPC.MaxOpenConnections }}

# Maximum size of request body, in bytes
max_body_bytes = {{ .RPC.MaxBodyBytes }}

# Maximum size of request header, in bytes
max_header_bytes = {{ .RPC.MaxHeaderBytes }}

#######################################################
###         Consensus Configuration Options         ###
#######################################################
[consensus]

# bft | cft
consistency_model = "{{ .Consensus.ConsistencyModel }}"

# Number of decided rounds whose vote state is retained
vote_storage_size = {{ .Consensus.VoteStorageSize }}

# Capacity of the incoming vote queue
vote_queue_size = {{ .Consensus.VoteQueueSize }}

#######################################################
###          Ordering Configuration Options         ###
#######################################################
[ordering]

# Maximum number of transactions packed into one proposal.
# A single batch larger than the limit is still packed whole.
transaction_limit = {{ .Ordering.TransactionLimit }}

# Number of proposals kept for peers to request
number_of_proposals = {{ .Ordering.NumberOfProposals }}

# Size of the replay cache of in-flight batches
replay_cache_size = {{ .Ordering.ReplayCacheSize }}

# Allow proposals without transactions
allow_empty_proposals = {{ .Ordering.AllowEmptyProposals }}

# The first round after genesis
initial_block_round = {{ .Ordering.InitialBlockRound }}
initial_reject_round = {{ .Ordering.InitialRejectRound }}

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus_listen_addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Maximum number of simultaneous connections.
# 0 - unlimited.
max_open_connections = {{ .Instrumentation.MaxOpenConnections }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`
