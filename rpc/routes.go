package rpc

import rpc "github.com/tendermint/tendermint/rpc/jsonrpc/server"

var Routes = map[string]*rpc.RPCFunc{
	// ordering
	"broadcast_batch": rpc.NewRPCFunc(BroadcastBatch, "txs"),
	"proposal":        rpc.NewRPCFunc(Proposal, "block_round,reject_round"),

	// consensus
	"broadcast_vote": rpc.NewRPCFunc(BroadcastVote, "votes"),
	"round_state":    rpc.NewRPCFunc(RoundState, "block_round,reject_round"),

	// store
	"blockchain": rpc.NewRPCFunc(Blockchain, ""),
	"block":      rpc.NewRPCFunc(Block, "height"),

	// info
	"status":  rpc.NewRPCFunc(Status, ""),
	"metrics": rpc.NewRPCFunc(JSONMetrics, "label"),
}
