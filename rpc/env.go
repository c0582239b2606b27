package rpc

import (
	"github.com/tendermint/tendermint/libs/log"

	"ledgercore/consensus"
	"ledgercore/libs/metric"
	"ledgercore/ordering"
	"ledgercore/store"
	"ledgercore/types"
)

var (
	env *Environment
)

func SetEnvironment(e *Environment) {
	env = e
}

// Environment rpc handler可以访问的节点组件
type Environment struct {
	Ordering   *ordering.OnDemandOrderingService
	Gate       *ordering.Gate
	Consensus  *consensus.ConsensusState
	BlockStore store.BlockStore

	MetricSet *metric.MetricSet
	NodeInfo  types.NodeInfo

	Logger log.Logger
}
