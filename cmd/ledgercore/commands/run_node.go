package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"

	nm "ledgercore/node"
)

// AddNodeFlags exposes some common configuration options on the command-line
// These are exposed for convenience of commands embedding a ledgercore node
func AddNodeFlags(cmd *cobra.Command) {
	// bind flags
	cmd.Flags().String("moniker", config.Moniker, "node name")
	cmd.Flags().String("chain_id", config.ChainID, "chain id")

	// rpc flags
	cmd.Flags().String("rpc.laddr", config.RPC.ListenAddress, "RPC listen address. Port required")

	// consensus flags
	cmd.Flags().String(
		"consensus.consistency_model",
		config.Consensus.ConsistencyModel,
		"supermajority rule of the votes: bft | cft")

	// ordering flags
	cmd.Flags().Int(
		"ordering.transaction_limit",
		config.Ordering.TransactionLimit,
		"maximum number of transactions in a proposal")
	cmd.Flags().Int(
		"ordering.number_of_proposals",
		config.Ordering.NumberOfProposals,
		"number of proposals kept for peers to request")
	cmd.Flags().Bool(
		"ordering.allow_empty_proposals",
		config.Ordering.AllowEmptyProposals,
		"build proposals without transactions")

	// db flags
	cmd.Flags().String(
		"db_backend",
		config.DBBackend,
		"database backend: goleveldb | memdb")
	cmd.Flags().String(
		"db_dir",
		config.DBPath,
		"database directory")
}

// NewRunNodeCmd returns the command that allows the CLI to start a node.
// It can be used with a custom node provider.
func NewRunNodeCmd(nodeProvider nm.Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the ledgercore node",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := nodeProvider(config, logger)
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}

			if err := n.Start(); err != nil {
				return fmt.Errorf("failed to start node: %w", err)
			}

			logger.Info("Started node", "nodeInfo", n.NodeInfo())

			// Stop upon receiving SIGTERM or CTRL-C.
			tmos.TrapSignal(logger, func() {
				if n.IsRunning() {
					if err := n.Stop(); err != nil {
						logger.Error("unable to stop the node", "error", err)
					}
				}
			})

			// Run forever.
			select {}
		},
	}

	AddNodeFlags(cmd)
	return cmd
}
