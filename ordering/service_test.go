package ordering

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"
	"pgregory.net/rapid"

	"ledgercore/config"
	"ledgercore/mempool"
	sm "ledgercore/state"
	"ledgercore/types"
)

// ----- utility func -----

func round(b uint64, r uint32) types.Round {
	return types.NewRound(b, r)
}

var (
	seqMtx sync.Mutex
	txSeq  int
)

func newBatch(size int) *types.TransactionBatch {
	seqMtx.Lock()
	defer seqMtx.Unlock()

	txs := make(types.Txs, size)
	for i := range txs {
		txSeq++
		txs[i] = types.Tx(fmt.Sprintf("tx-%d", txSeq))
	}
	return types.NewTransactionBatch(txs...)
}

// recordingFactory 记录所有生成的proposal
type recordingFactory struct {
	mtx       sync.Mutex
	factory   mempool.ProposalFactory
	proposals []*types.Proposal
}

func newRecordingFactory() *recordingFactory {
	return &recordingFactory{factory: sm.NewProposalFactory(false)}
}

func (f *recordingFactory) BuildProposal(r types.Round, txs types.Txs, height uint64, created time.Time) (*types.Proposal, error) {
	p, err := f.factory.BuildProposal(r, txs, height, created)
	if err == nil {
		f.mtx.Lock()
		f.proposals = append(f.proposals, p)
		f.mtx.Unlock()
	}
	return p, err
}

func newService(cfg *config.OrderingConfig, factory mempool.ProposalFactory) *OnDemandOrderingService {
	return NewOnDemandOrderingService(cfg, factory, WithLogger(log.TestingLogger()))
}

func txKeys(txs types.Txs) []string {
	keys := make([]string, 0, len(txs))
	for _, tx := range txs {
		keys = append(keys, string(tx))
	}
	sort.Strings(keys)
	return keys
}

// ----- tests -----

func TestOutcomePacksDueRounds(t *testing.T) {
	ods := newService(config.TestOrderingConfig(), newRecordingFactory())
	assert.Equal(t, 0, ods.ProposalsLen(), "nothing to pack at start")

	b1, b2 := newBatch(2), newBatch(1)
	ods.OnBatches(round(2, 1), b1)
	ods.OnBatches(round(3, 0), b2)
	ods.OnCollaborationOutcome(round(2, 0))

	p, ok := ods.OnRequestProposal(round(2, 1))
	require.True(t, ok)
	assert.Equal(t, b1.Txs, p.Txs())
	assert.Equal(t, uint64(2), p.Height())

	p3, ok := ods.OnRequestProposal(round(3, 0))
	require.True(t, ok)
	assert.Equal(t, b2.Txs, p3.Txs())
	assert.Equal(t, uint64(3), p3.Height())

	again, ok := ods.OnRequestProposal(round(3, 0))
	require.True(t, ok)
	assert.Same(t, p3, again)

	_, ok = ods.OnRequestProposal(round(2, 2))
	assert.False(t, ok)
}

func TestRejectOutcomePacksNextRejectRound(t *testing.T) {
	ods := newService(config.TestOrderingConfig(), newRecordingFactory())

	b := newBatch(1)
	ods.OnBatches(round(2, 2), b)
	ods.OnCollaborationOutcome(round(2, 1))

	p, ok := ods.OnRequestProposal(round(2, 2))
	require.True(t, ok)
	assert.Equal(t, b.Txs, p.Txs())
	_, ok = ods.OnRequestProposal(round(3, 0))
	assert.False(t, ok, "reject outcome does not pack the next block round")
}

func TestPackedProposalIsNotReplaced(t *testing.T) {
	ods := newService(config.TestOrderingConfig(), newRecordingFactory())

	ods.OnBatches(round(3, 0), newBatch(1))
	ods.OnCollaborationOutcome(round(2, 0))
	first, ok := ods.OnRequestProposal(round(3, 0))
	require.True(t, ok)

	ods.OnBatches(round(3, 0), newBatch(1))
	ods.OnCollaborationOutcome(round(2, 0))
	second, ok := ods.OnRequestProposal(round(3, 0))
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Len(t, ods.PendingBatches(round(4, 0)), 1, "late batch is carried forward")
}

func TestLeftoversCarriedToNextCommitRound(t *testing.T) {
	ods := newService(config.TestOrderingConfig(), newRecordingFactory())

	b3, b4 := newBatch(3), newBatch(4)
	stale := newBatch(1)
	ods.OnBatches(round(2, 1), b3, b4)
	ods.OnBatches(round(1, 7), stale)
	kept := newBatch(1)
	ods.OnBatches(round(3, 1), kept)

	ods.OnCollaborationOutcome(round(2, 0))

	p, ok := ods.OnRequestProposal(round(2, 1))
	require.True(t, ok)
	assert.Equal(t, b3.Txs, p.Txs())

	assert.Equal(t, []*types.TransactionBatch{b4, stale}, ods.PendingBatches(round(4, 0)))
	assert.Equal(t, []*types.TransactionBatch{kept}, ods.PendingBatches(round(3, 1)), "open rounds keep their queue")
	assert.Empty(t, ods.PendingBatches(round(1, 7)))
}

func TestEvictCommitRound(t *testing.T) {
	cfg := config.TestOrderingConfig()
	cfg.NumberOfProposals = 2
	ods := newService(cfg, newRecordingFactory())

	feed := func(rounds ...types.Round) {
		for _, r := range rounds {
			ods.OnBatches(r, newBatch(1))
		}
	}

	feed(round(2, 1), round(3, 0))
	ods.OnCollaborationOutcome(round(2, 0))
	assert.Equal(t, 2, ods.ProposalsLen())

	feed(round(3, 1), round(4, 0))
	ods.OnCollaborationOutcome(round(3, 0))
	assert.Equal(t, 2, ods.ProposalsLen())

	for r, want := range map[types.Round]bool{
		round(2, 1): false,
		round(3, 0): false,
		round(3, 1): true,
		round(4, 0): true,
	} {
		_, ok := ods.OnRequestProposal(r)
		assert.Equal(t, want, ok, "round %v", r)
	}
}

func TestEvictRejectChain(t *testing.T) {
	cfg := config.TestOrderingConfig()
	cfg.NumberOfProposals = 3
	ods := newService(cfg, newRecordingFactory())

	ods.OnBatches(round(2, 1), newBatch(1))
	ods.OnCollaborationOutcome(round(2, 0))
	for r := uint32(1); r <= 3; r++ {
		ods.OnBatches(round(2, r+1), newBatch(1))
		ods.OnCollaborationOutcome(round(2, r))
	}

	// (2,1) (2,2) (2,3) 一起被删除，刚打包的(2,4)保留
	assert.Equal(t, 1, ods.ProposalsLen())
	_, ok := ods.OnRequestProposal(round(2, 4))
	assert.True(t, ok)
	for r := uint32(1); r <= 3; r++ {
		_, ok := ods.OnRequestProposal(round(2, r))
		assert.False(t, ok)
	}
}

func TestInitialRoundFromConfig(t *testing.T) {
	cfg := config.TestOrderingConfig()
	cfg.InitialBlockRound = 5
	factory := newRecordingFactory()

	ods := NewOnDemandOrderingService(cfg, factory)
	assert.Equal(t, 0, ods.ProposalsLen())

	assert.Panics(t, func() {
		bad := config.TestOrderingConfig()
		bad.TransactionLimit = 0
		NewOnDemandOrderingService(bad, factory)
	})
}

func TestJSONMetric(t *testing.T) {
	ods := newService(config.TestOrderingConfig(), newRecordingFactory())
	assert.Contains(t, ods.JSONMetric().JSONString(), `"max_proposal_size":-1`)

	ods.OnBatches(round(2, 1), newBatch(2))
	ods.OnBatches(round(3, 0), newBatch(4))
	ods.OnCollaborationOutcome(round(2, 0))

	s := ods.JSONMetric().JSONString()
	assert.Contains(t, s, `"proposals_num":2`)
	assert.Contains(t, s, `"max_proposal_size":4`)
	assert.Contains(t, s, `"avg_proposal_size":3`)
}

func TestConcurrentBatchesAndRequests(t *testing.T) {
	cfg := config.TestOrderingConfig()
	cfg.TransactionLimit = 1000
	factory := newRecordingFactory()
	ods := newService(cfg, factory)

	const producers = 4
	var (
		wg       sync.WaitGroup
		enqueued = make(chan types.Txs, producers*100)
	)
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b := newBatch(1)
				ods.OnBatches(round(uint64(2+j%3), uint32(j%3)), b)
				enqueued <- b.Txs
				ods.OnRequestProposal(round(3, 0))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for b := uint64(2); b < 6; b++ {
			ods.OnCollaborationOutcome(round(b, 0))
		}
	}()
	wg.Wait()
	close(enqueued)

	var want types.Txs
	for txs := range enqueued {
		want = append(want, txs...)
	}
	assert.Equal(t, txKeys(want), txKeys(collectTxs(ods, factory)))
}

// collectTxs 所有生成过的proposal和队列中剩下的交易
func collectTxs(ods *OnDemandOrderingService, factory *recordingFactory) types.Txs {
	var got types.Txs
	factory.mtx.Lock()
	for _, p := range factory.proposals {
		got = append(got, p.Txs()...)
	}
	factory.mtx.Unlock()

	queue := ods.packer.Queue()
	for _, r := range queue.Rounds() {
		got = append(got, types.BatchesTxs(queue.Batches(r))...)
	}
	return got
}

func TestOrderingProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := config.TestOrderingConfig()
		cfg.TransactionLimit = rapid.IntRange(1, 8).Draw(t, "transaction_limit")
		cfg.NumberOfProposals = rapid.IntRange(1, 4).Draw(t, "number_of_proposals")
		factory := newRecordingFactory()
		ods := NewOnDemandOrderingService(cfg, factory)

		var enqueued types.Txs
		steps := rapid.IntRange(0, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			r := round(
				rapid.Uint64Range(1, 6).Draw(t, "block_round"),
				rapid.Uint32Range(0, 3).Draw(t, "reject_round"),
			)
			if rapid.Bool().Draw(t, "outcome") {
				ods.OnCollaborationOutcome(r)
				if n := ods.ProposalsLen(); n > cfg.NumberOfProposals {
					t.Fatalf("%d proposals kept, limit %d", n, cfg.NumberOfProposals)
				}
				continue
			}
			b := newBatch(rapid.IntRange(1, 6).Draw(t, "batch_size"))
			ods.OnBatches(r, b)
			enqueued = append(enqueued, b.Txs...)
		}

		got := txKeys(collectTxs(ods, factory))
		want := txKeys(enqueued)
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("transactions not conserved: got %v want %v", got, want)
		}
	})
}
