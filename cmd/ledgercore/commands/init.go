package commands

import (
	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"

	cfg "ledgercore/config"
	"ledgercore/privval"
	"ledgercore/types"
)

// InitFilesCmd initialises a fresh ledgercore instance.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ledgercore",
	RunE:  initFiles,
}

func initFiles(cmd *cobra.Command, args []string) error {
	return initFilesWithConfig(config)
}

func initFilesWithConfig(config *cfg.Config) error {
	// node key
	nodeKeyFile := config.NodeKeyFile()
	var (
		pv  *privval.FilePV
		err error
	)
	if tmos.FileExists(nodeKeyFile) {
		pv, err = privval.LoadFilePV(nodeKeyFile)
		if err != nil {
			return err
		}
		logger.Info("Found node key", "path", nodeKeyFile)
	} else {
		pv = privval.GenFilePV(nodeKeyFile)
		if err := pv.Save(); err != nil {
			return err
		}
		logger.Info("Generated node key", "path", nodeKeyFile, "addr", pv.GetAddress())
	}

	// peers file, 只有本节点
	peersFile := config.PeersFile()
	if tmos.FileExists(peersFile) {
		logger.Info("Found peers file", "path", peersFile)
	} else {
		peers := types.NewPeerSet([]*types.Peer{pv.Peer()})
		if err := privval.SavePeerSet(peersFile, peers); err != nil {
			return err
		}
		logger.Info("Generated peers file", "path", peersFile)
	}

	cfg.WriteConfigFile(config.ConfigFile(), config)
	logger.Info("Generated config file", "path", config.ConfigFile())
	return nil
}
