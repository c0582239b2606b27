package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgercore/store"
	"ledgercore/types"
)

var fromHeight uint64

func init() {
	InspectStoreCmd.Flags().Uint64Var(&fromHeight, "from", 0, "只输出不低于该高度的区块")
}

// InspectStoreCmd 按高度输出区块存储中的区块，节点需要先停止
var InspectStoreCmd = &cobra.Command{
	Use:     "inspect-store",
	Aliases: []string{"inspect_store"},
	Short:   "Print the blocks of the block store",
	PreRun:  deprecateSnakeCase,
	RunE:    inspectStore,
}

func inspectStore(cmd *cobra.Command, args []string) error {
	bs, err := store.OpenBlockStore("blockstore", config.DBBackend, config.DBDir(), logger)
	if err != nil {
		return err
	}
	defer bs.Close()

	fmt.Printf("%v last_height=%d blocks=%d\n", bs, bs.LastHeight(), bs.Size())
	return bs.Visit(func(b *types.Block) error {
		if b.Height() < fromHeight {
			return nil
		}
		fmt.Printf("height=%d round=%v txs=%d votes=%d hash=%v\n",
			b.Height(), b.Header.Round, len(b.Txs()), len(b.Commit.Votes), b.Hash())
		return nil
	})
}
