package rpc

import (
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"

	"ledgercore/types"
)

type ResultBroadcastVote struct {
	Round types.Round `json:"round"`
	Votes int         `json:"votes"`
}

type ResultRoundState struct {
	Round           types.Round `json:"round"`
	CurrentRound    types.Round `json:"current_round"`
	ProcessingState string      `json:"processing_state"`
	Committed       bool        `json:"committed"`
}

// BroadcastVote 同一个round的一组投票，投票在进入节点之前已经完成认证
func BroadcastVote(ctx *rpctypes.Context, votes []*types.Vote) (*ResultBroadcastVote, error) {
	if err := env.Consensus.AddVotes(votes, ctx.RemoteAddr()); err != nil {
		return nil, err
	}
	return &ResultBroadcastVote{Round: votes[0].Round(), Votes: len(votes)}, nil
}

func RoundState(ctx *rpctypes.Context, blockRound uint64, rejectRound uint32) (*ResultRoundState, error) {
	round := types.NewRound(blockRound, rejectRound)
	return &ResultRoundState{
		Round:           round,
		CurrentRound:    env.Gate.CurrentRound(),
		ProcessingState: env.Consensus.ProcessingState(round).String(),
		Committed:       env.Consensus.IsCommitted(round),
	}, nil
}
