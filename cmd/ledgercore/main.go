package main

import (
	"os"
	"path/filepath"

	"github.com/tendermint/tendermint/libs/cli"

	cmd "ledgercore/cmd/ledgercore/commands"
	cfg "ledgercore/config"
	nm "ledgercore/node"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.AddCommand(
		cmd.InitFilesCmd,
		cmd.GenNodeKeyCmd,
		cmd.ShowPeerCmd,
		cmd.AddPeerCmd,
		cmd.InspectStoreCmd,
		cmd.ResetAllCmd,
		cmd.VersionCmd,
		cli.NewCompletionCmd(rootCmd, true),
	)

	// NOTE:
	// Users wishing to:
	//	* Supply the peers from another source
	//	* Provide their own DB implementation
	// can copy this file and use something other than the
	// DefaultNewNode function
	nodeFunc := nm.DefaultNewNode

	// Create & start node
	rootCmd.AddCommand(cmd.NewRunNodeCmd(nodeFunc))

	cmd := cli.PrepareBaseCmd(rootCmd, "LC", os.ExpandEnv(filepath.Join("$HOME", cfg.DefaultLedgerDir)))
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
