package mempool

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"ledgercore/types"
)

// CommittedIndex 查询交易是否已经提交，由区块存储实现
type CommittedIndex interface {
	HasTx(hash []byte) bool
}

// PresenceCache 实现ReplayCache
// 提交状态从区块存储中查询；pending状态保存在定长的lru中，容量满时最久未使用的记录被丢弃
type PresenceCache struct {
	committed CommittedIndex
	pending   *lru.Cache[string, struct{}] // tx hash
}

var (
	_ ReplayCache    = (*PresenceCache)(nil)
	_ PendingTracker = (*PresenceCache)(nil)
)

func NewPresenceCache(committed CommittedIndex, size int) (*PresenceCache, error) {
	pending, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &PresenceCache{
		committed: committed,
		pending:   pending,
	}, nil
}

// Status 任意一个交易已经提交则batch为Committed，任意一个交易在pending中则为Pending
func (c *PresenceCache) Status(batch *types.TransactionBatch) BatchStatus {
	status := BatchAbsent
	for _, tx := range batch.Txs {
		if c.committed != nil && c.committed.HasTx(tx.Hash()) {
			return BatchCommitted
		}
		if c.pending.Contains(tx.Key()) {
			status = BatchPending
		}
	}
	return status
}

func (c *PresenceCache) MarkPending(batches ...*types.TransactionBatch) {
	for _, b := range batches {
		for _, tx := range b.Txs {
			c.pending.Add(tx.Key(), struct{}{})
		}
	}
}

// Release 交易所在的proposal已经有结果，不再处于pending
func (c *PresenceCache) Release(txs types.Txs) {
	for _, tx := range txs {
		c.pending.Remove(tx.Key())
	}
}

// PendingLen pending中的交易数
func (c *PresenceCache) PendingLen() int {
	return c.pending.Len()
}
