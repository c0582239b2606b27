package rpc

import (
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"

	"ledgercore/types"
)

type ResultBroadcastBatch struct {
	Hash  tmbytes.HexBytes `json:"hash"`
	Size  int              `json:"size"`
	Round types.Round      `json:"round"` // 提交时gate所在的round
}

// BroadcastBatch 把一组交易作为一个不可拆分的batch交给gate
func BroadcastBatch(ctx *rpctypes.Context, txs []types.Tx) (*ResultBroadcastBatch, error) {
	batch := types.NewTransactionBatch(txs...)
	if err := batch.ValidateBasic(); err != nil {
		return nil, err
	}

	round := env.Gate.CurrentRound()
	env.Gate.PropagateBatch(batch)
	return &ResultBroadcastBatch{
		Hash:  batch.Hash(),
		Size:  batch.Size(),
		Round: round,
	}, nil
}
