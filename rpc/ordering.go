package rpc

import (
	"fmt"
	"time"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"

	"ledgercore/types"
)

type ResultProposal struct {
	Round       types.Round      `json:"round"`
	Height      uint64           `json:"height"`
	CreatedTime time.Time        `json:"created_time"`
	Hash        tmbytes.HexBytes `json:"hash"`
	Txs         types.Txs        `json:"txs"`
}

// Proposal 返回本节点为round打包的proposal
func Proposal(ctx *rpctypes.Context, blockRound uint64, rejectRound uint32) (*ResultProposal, error) {
	round := types.NewRound(blockRound, rejectRound)
	p, ok := env.Ordering.OnRequestProposal(round)
	if !ok {
		return nil, fmt.Errorf("no proposal for round %v", round)
	}
	return &ResultProposal{
		Round:       p.Round(),
		Height:      p.Height(),
		CreatedTime: p.CreatedTime(),
		Hash:        p.Hash(),
		Txs:         p.Txs(),
	}, nil
}
