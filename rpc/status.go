package rpc

import (
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"

	"ledgercore/types"
)

type ResultStatus struct {
	NodeInfo        types.NodeInfo `json:"node_info"`
	CurrentRound    types.Round    `json:"current_round"`
	LastBlockHeight uint64         `json:"last_block_height"`
	Peers           int            `json:"peers"`
	PendingBatches  int            `json:"pending_batches"`
	Proposals       int            `json:"proposals"`
}

func Status(ctx *rpctypes.Context) (*ResultStatus, error) {
	state := env.Gate.State()
	return &ResultStatus{
		NodeInfo:        env.NodeInfo,
		CurrentRound:    env.Gate.CurrentRound(),
		LastBlockHeight: state.LastBlockHeight,
		Peers:           env.Consensus.PeerSet().Size(),
		PendingBatches:  env.Ordering.PendingSize(),
		Proposals:       env.Ordering.ProposalsLen(),
	}, nil
}
