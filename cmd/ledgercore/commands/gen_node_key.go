package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"

	"ledgercore/privval"
)

// GenNodeKeyCmd 生成节点用来签名投票的公私钥，并输出节点的地址
var GenNodeKeyCmd = &cobra.Command{
	Use:     "gen-node-key",
	Aliases: []string{"gen_node_key"},
	Short:   "Generate a node key for this node and print its address",
	PreRun:  deprecateSnakeCase,
	RunE:    genNodeKey,
}

func genNodeKey(cmd *cobra.Command, args []string) error {
	nodeKeyFile := config.NodeKeyFile()
	if tmos.FileExists(nodeKeyFile) {
		return fmt.Errorf("node key at %s already exists", nodeKeyFile)
	}

	pv, err := privval.LoadOrGenFilePV(nodeKeyFile)
	if err != nil {
		return err
	}
	fmt.Println(pv.GetAddress())
	return nil
}
