package mempool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/types"
)

// ----- utility func -----

var batchSeq int

// newBatch 生成size条互不相同的交易组成的batch
func newBatch(size int) *types.TransactionBatch {
	txs := make(types.Txs, size)
	for i := range txs {
		batchSeq++
		txs[i] = types.Tx(fmt.Sprintf("tx-%d", batchSeq))
	}
	return types.NewTransactionBatch(txs...)
}

func round(b uint64, r uint32) types.Round {
	return types.NewRound(b, r)
}

// ----- tests -----

func TestBatchQueueFIFO(t *testing.T) {
	bq := NewBatchQueue()
	b1, b2, b3 := newBatch(1), newBatch(2), newBatch(3)

	bq.Enqueue(round(1, 0), b1, b2)
	bq.Enqueue(round(1, 0), b3)
	bq.Enqueue(round(2, 0))

	assert.Equal(t, 3, bq.Len(round(1, 0)))
	assert.Equal(t, 0, bq.Len(round(2, 0)))
	assert.Equal(t, []types.Round{round(1, 0)}, bq.Rounds())

	front, ok := bq.Front(round(1, 0))
	require.True(t, ok)
	assert.Equal(t, b1, front)

	got, ok := bq.PopFront(round(1, 0))
	require.True(t, ok)
	assert.Equal(t, b1, got)
	assert.Equal(t, []*types.TransactionBatch{b2, b3}, bq.Batches(round(1, 0)))

	_, ok = bq.PopFront(round(9, 9))
	assert.False(t, ok)
}

func TestBatchQueuePrependAndRemove(t *testing.T) {
	bq := NewBatchQueue()
	b1, b2, b3, b4 := newBatch(1), newBatch(1), newBatch(1), newBatch(1)

	bq.Enqueue(round(3, 0), b3, b4)
	bq.Prepend(round(3, 0), b1, b2)
	assert.Equal(t, []*types.TransactionBatch{b1, b2, b3, b4}, bq.Batches(round(3, 0)))

	bq.Prepend(round(4, 0), b1)
	assert.Equal(t, 5, bq.Size())
	assert.Equal(t, []types.Round{round(3, 0), round(4, 0)}, bq.Rounds())

	removed := bq.Remove(round(3, 0))
	assert.Equal(t, []*types.TransactionBatch{b1, b2, b3, b4}, removed)
	assert.Equal(t, 0, bq.Len(round(3, 0)))
	assert.Nil(t, bq.Remove(round(3, 0)))
	assert.Equal(t, 1, bq.Size())
}

func TestBatchQueueConcurrentProducers(t *testing.T) {
	const (
		producers = 8
		perWorker = 50
	)
	bq := NewBatchQueue()
	batches := make([][]*types.TransactionBatch, producers)
	for i := range batches {
		for j := 0; j < perWorker; j++ {
			batches[i] = append(batches[i], newBatch(1))
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for _, b := range batches[i] {
				bq.Enqueue(round(uint64(i%2), 0), b)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, producers*perWorker, bq.Size())
	assert.Equal(t, producers*perWorker/2, bq.Len(round(0, 0)))
}
