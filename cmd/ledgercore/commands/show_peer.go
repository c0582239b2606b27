package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmos "github.com/tendermint/tendermint/libs/os"

	"ledgercore/privval"
)

// ShowPeerCmd 输出本节点在peers文件中的条目，用来拼出集群的peers.json
var ShowPeerCmd = &cobra.Command{
	Use:     "show-peer",
	Aliases: []string{"show_peer"},
	Short:   "Show this node's entry for the peers file",
	PreRun:  deprecateSnakeCase,
	RunE:    showPeer,
}

func showPeer(cmd *cobra.Command, args []string) error {
	keyFilePath := config.NodeKeyFile()
	if !tmos.FileExists(keyFilePath) {
		return fmt.Errorf("node key file %q does not exist", keyFilePath)
	}

	pv, err := privval.LoadFilePV(keyFilePath)
	if err != nil {
		return err
	}

	bz, err := tmjson.MarshalIndent(pv.Peer(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal peer: %w", err)
	}

	fmt.Println(string(bz))
	return nil
}
