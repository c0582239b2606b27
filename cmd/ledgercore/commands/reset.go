package commands

import (
	"github.com/spf13/cobra"

	sm "ledgercore/state"
	"ledgercore/store"
)

// ResetAllCmd 删除所有区块并把state恢复为genesis，节点需要先停止
var ResetAllCmd = &cobra.Command{
	Use:     "unsafe-reset-all",
	Aliases: []string{"unsafe_reset_all"},
	Short:   "(unsafe) Remove all the blocks and reset the state to genesis",
	PreRun:  deprecateSnakeCase,
	RunE:    resetAll,
}

func resetAll(cmd *cobra.Command, args []string) error {
	bs, err := store.OpenBlockStore("blockstore", config.DBBackend, config.DBDir(), logger)
	if err != nil {
		return err
	}
	defer bs.Close()
	if err := bs.DropAll(); err != nil {
		return err
	}

	stateDB, err := store.OpenDB("state", config.DBBackend, config.DBDir())
	if err != nil {
		return err
	}
	defer stateDB.Close()
	genesis := sm.MakeGenesisState(config.ChainID, config.Ordering.InitialRound())
	if err := sm.NewStore(stateDB).Save(genesis); err != nil {
		return err
	}

	logger.Info("Reset block store and state", "dir", config.DBDir(), "round", genesis.CurrentRound())
	return nil
}
