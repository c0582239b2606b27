package mempool

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
)

func newMemMetric(queue *BatchQueue) *memMetric {
	return &memMetric{queue: queue}
}

// memMetric 通过rpc暴露的mempool状态
type memMetric struct {
	mtx   sync.RWMutex
	queue *BatchQueue

	PendingBatchesNum int   `json:"pending_batches_num"` // 所有队列中等待打包的batch总数
	QueuedRoundsNum   int   `json:"queued_rounds_num"`   // 存在队列的round数
	PackedBatchesNum  int64 `json:"packed_batches_num"`  // 已经打包的batch总数
	SkippedBatchesNum int64 `json:"skipped_batches_num"` // 重复或者已经处理过被跳过的batch总数
	LastProposalSize  int   `json:"last_proposal_size"`  // 最后一个proposal的交易数
}

func (mm *memMetric) JSONString() string {
	mm.mtx.Lock()
	mm.PendingBatchesNum = mm.queue.Size()
	mm.QueuedRoundsNum = len(mm.queue.Rounds())
	mm.mtx.Unlock()

	mm.mtx.RLock()
	defer mm.mtx.RUnlock()
	s, _ := jsoniter.MarshalToString(mm)
	return s
}

func (mm *memMetric) MarkPacked(batches int, txs int) {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.PackedBatchesNum += int64(batches)
	mm.LastProposalSize = txs
}

func (mm *memMetric) MarkSkipped() {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.SkippedBatchesNum++
}
