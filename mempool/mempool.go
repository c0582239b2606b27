package mempool

import (
	"time"

	"ledgercore/types"
)

type BatchStatus uint8

const (
	BatchAbsent    = BatchStatus(0)
	BatchPending   = BatchStatus(1) // 已经被某个还没有结果的proposal打包
	BatchCommitted = BatchStatus(2) // 至少有一个交易已经提交
)

func (s BatchStatus) String() string {
	switch s {
	case BatchAbsent:
		return "Absent"
	case BatchPending:
		return "Pending"
	case BatchCommitted:
		return "Committed"
	default:
		return "UnkownBatchStatus"
	}
}

// ReplayCache 打包前查询batch是否已经被处理过
// 查询结果只是建议，最终的校验在下游进行
type ReplayCache interface {
	Status(batch *types.TransactionBatch) BatchStatus
}

// PendingTracker 可选接口，ReplayCache实现它时，被打包的batch会标记为pending
type PendingTracker interface {
	MarkPending(batches ...*types.TransactionBatch)
}

// ProposalFactory 根据交易生成proposal
// 除了created时间外必须是确定的；调用方不允许空proposal时，txs为空返回ErrEmptyProposal
type ProposalFactory interface {
	BuildProposal(round types.Round, txs types.Txs, height uint64, created time.Time) (*types.Proposal, error)
}

//--------------------------------------------------------------------------------

// nopReplayCache 所有batch都是新的
type nopReplayCache struct{}

func (nopReplayCache) Status(*types.TransactionBatch) BatchStatus {
	return BatchAbsent
}
