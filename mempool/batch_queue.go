package mempool

import (
	"sort"

	"github.com/tendermint/tendermint/libs/clist"
	tmsync "github.com/tendermint/tendermint/libs/sync"

	"ledgercore/types"
)

// BatchQueue 每个round一个等待打包的batch队列
// 多个producer可以并发Enqueue；队列的增删需要独占map
type BatchQueue struct {
	mtx    tmsync.RWMutex
	queues map[types.Round]*clist.CList
}

func NewBatchQueue() *BatchQueue {
	return &BatchQueue{
		queues: make(map[types.Round]*clist.CList),
	}
}

// Enqueue 把batch追加到round的队列，队列不存在时创建
func (bq *BatchQueue) Enqueue(round types.Round, batches ...*types.TransactionBatch) {
	if len(batches) == 0 {
		return
	}

	bq.mtx.RLock()
	l, ok := bq.queues[round]
	if ok {
		// CList允许并发PushBack，读锁保证队列不会被替换
		for _, b := range batches {
			l.PushBack(b)
		}
		bq.mtx.RUnlock()
		return
	}
	bq.mtx.RUnlock()

	bq.mtx.Lock()
	defer bq.mtx.Unlock()
	l, ok = bq.queues[round]
	if !ok {
		l = clist.New()
		bq.queues[round] = l
	}
	for _, b := range batches {
		l.PushBack(b)
	}
}

// Prepend 把batch放到round队列的最前面，保持batches自身的顺序
func (bq *BatchQueue) Prepend(round types.Round, batches ...*types.TransactionBatch) {
	if len(batches) == 0 {
		return
	}

	bq.mtx.Lock()
	defer bq.mtx.Unlock()

	l := clist.New()
	for _, b := range batches {
		l.PushBack(b)
	}
	if old, ok := bq.queues[round]; ok {
		for _, b := range drainList(old) {
			l.PushBack(b)
		}
	}
	bq.queues[round] = l
}

// Front 返回round队列的第一个batch
func (bq *BatchQueue) Front(round types.Round) (*types.TransactionBatch, bool) {
	bq.mtx.RLock()
	defer bq.mtx.RUnlock()

	l, ok := bq.queues[round]
	if !ok {
		return nil, false
	}
	e := l.Front()
	if e == nil {
		return nil, false
	}
	return e.Value.(*types.TransactionBatch), true
}

// PopFront 取出round队列的第一个batch
func (bq *BatchQueue) PopFront(round types.Round) (*types.TransactionBatch, bool) {
	bq.mtx.Lock()
	defer bq.mtx.Unlock()

	l, ok := bq.queues[round]
	if !ok {
		return nil, false
	}
	e := l.Front()
	if e == nil {
		return nil, false
	}
	l.Remove(e)
	e.DetachPrev()
	return e.Value.(*types.TransactionBatch), true
}

// Remove 删除round的队列，返回其中所有的batch
func (bq *BatchQueue) Remove(round types.Round) []*types.TransactionBatch {
	bq.mtx.Lock()
	defer bq.mtx.Unlock()

	l, ok := bq.queues[round]
	if !ok {
		return nil
	}
	delete(bq.queues, round)
	return drainList(l)
}

// Len round队列中的batch数
func (bq *BatchQueue) Len(round types.Round) int {
	bq.mtx.RLock()
	defer bq.mtx.RUnlock()

	if l, ok := bq.queues[round]; ok {
		return l.Len()
	}
	return 0
}

// Rounds 所有存在队列的round，升序
func (bq *BatchQueue) Rounds() []types.Round {
	bq.mtx.RLock()
	rounds := make([]types.Round, 0, len(bq.queues))
	for r := range bq.queues {
		rounds = append(rounds, r)
	}
	bq.mtx.RUnlock()

	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Less(rounds[j]) })
	return rounds
}

// Batches 按顺序返回round队列中的batch，不改变队列
func (bq *BatchQueue) Batches(round types.Round) []*types.TransactionBatch {
	bq.mtx.RLock()
	defer bq.mtx.RUnlock()

	l, ok := bq.queues[round]
	if !ok {
		return nil
	}
	batches := make([]*types.TransactionBatch, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		batches = append(batches, e.Value.(*types.TransactionBatch))
	}
	return batches
}

// Size 所有队列中的batch总数
func (bq *BatchQueue) Size() int {
	bq.mtx.RLock()
	defer bq.mtx.RUnlock()

	n := 0
	for _, l := range bq.queues {
		n += l.Len()
	}
	return n
}

func drainList(l *clist.CList) []*types.TransactionBatch {
	batches := make([]*types.TransactionBatch, 0, l.Len())
	for e := l.Front(); e != nil; e = l.Front() {
		l.Remove(e)
		e.DetachPrev()
		batches = append(batches, e.Value.(*types.TransactionBatch))
	}
	return batches
}
