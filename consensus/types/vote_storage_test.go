package types

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"ledgercore/types"
)

func newTestVoteStorage(maxSize int) *VoteStorage {
	vs := NewVoteStorage(NewBufferedCleanupStrategy(maxSize, round(0, 0), nil))
	vs.SetLogger(log.TestingLogger())
	return vs
}

func TestVoteStorageStore(t *testing.T) {
	peers := makePeers(4)
	vs := newTestVoteStorage(3)
	r := round(1, 0)
	hash := commitHash(r, 1)

	_, ok := vs.Store(votesFor(hash, peers[:2]...), 4)
	assert.False(t, ok)
	assert.True(t, vs.HasRound(r))
	assert.False(t, vs.IsCommitted(r))

	answer, ok := vs.Store(votesFor(hash, peers[2]), 4)
	require.True(t, ok)
	assert.Equal(t, types.CommitAnswer, answer.Type)
	assert.True(t, vs.IsCommitted(r))

	// 重复提交得到同一个answer
	again, ok := vs.Store(votesFor(hash, peers[3]), 4)
	require.True(t, ok)
	assert.Equal(t, answer, again)
}

func TestVoteStorageRejectIsNotCommitted(t *testing.T) {
	peers := makePeers(4)
	vs := newTestVoteStorage(3)
	r := round(1, 0)

	answer, ok := vs.Store(votesFor(rejectHash(r), peers[:3]...), 4)
	require.True(t, ok)
	assert.Equal(t, types.RejectAnswer, answer.Type)
	assert.False(t, vs.IsCommitted(r))
	assert.False(t, vs.IsCommitted(round(9, 9)))
}

func TestVoteStorageDropsRetiredRound(t *testing.T) {
	peers := makePeers(4)
	vs := newTestVoteStorage(3)

	_, ok := vs.Store(votesFor(commitHash(round(2, 0), 1), peers[:3]...), 4)
	require.True(t, ok)

	before := vs.Len()
	_, ok = vs.Store(votesFor(commitHash(round(1, 5), 1), peers...), 4)
	assert.False(t, ok)
	assert.False(t, vs.HasRound(round(1, 5)))
	assert.Equal(t, before, vs.Len())
}

func TestVoteStorageEvictsOldRounds(t *testing.T) {
	peers := makePeers(4)
	vs := newTestVoteStorage(2)

	for i := uint32(0); i < 4; i++ {
		r := round(1, i)
		_, ok := vs.Store(votesFor(rejectHash(r), peers[:3]...), 4)
		require.True(t, ok)
	}

	assert.Equal(t, 2, vs.Len())
	assert.False(t, vs.HasRound(round(1, 0)))
	assert.False(t, vs.HasRound(round(1, 1)))
	assert.True(t, vs.HasRound(round(1, 2)))
	assert.True(t, vs.HasRound(round(1, 3)))
}

// 已有结果的round每次重复提交都会再次finalize，从而挤掉其他round
func TestVoteStorageRepeatedAnswerConsumesCapacity(t *testing.T) {
	peers := makePeers(4)
	vs := newTestVoteStorage(2)

	old := round(1, 0)
	_, ok := vs.Store(votesFor(rejectHash(old), peers[:3]...), 4)
	require.True(t, ok)

	latest := round(1, 1)
	_, ok = vs.Store(votesFor(rejectHash(latest), peers[:3]...), 4)
	require.True(t, ok)

	_, ok = vs.Store(votesFor(rejectHash(latest), peers[3]), 4)
	require.True(t, ok)
	_, ok = vs.Store(votesFor(rejectHash(latest), peers[3]), 4)
	require.True(t, ok)

	assert.False(t, vs.HasRound(old))
	assert.False(t, vs.HasRound(latest), "resubmissions of the latest round evicted the latest round itself")
	assert.Equal(t, 0, vs.Len())
}

func TestVoteStorageProcessingState(t *testing.T) {
	vs := newTestVoteStorage(1)
	r := round(3, 1)

	assert.Equal(t, NotSentNotProcessed, vs.ProcessingState(r))
	assert.Equal(t, SentNotProcessed, vs.AdvanceProcessingState(r))
	assert.Equal(t, SentProcessed, vs.AdvanceProcessingState(r))
	for i := 0; i < 3; i++ {
		assert.Equal(t, SentProcessed, vs.AdvanceProcessingState(r))
	}
	assert.Equal(t, SentProcessed, vs.ProcessingState(r))

	// 处理进度不随投票状态释放
	peers := makePeers(4)
	for i := uint32(0); i < 3; i++ {
		vs.Store(votesFor(rejectHash(round(4, i)), peers[:3]...), 4)
	}
	assert.False(t, vs.HasRound(r))
	assert.Equal(t, SentProcessed, vs.ProcessingState(r))
}

func TestVoteStorageContractViolations(t *testing.T) {
	vs := newTestVoteStorage(2)
	peers := makePeers(2)

	assert.Panics(t, func() { vs.Store(nil, 4) })
	assert.Panics(t, func() { vs.Store([]*types.Vote{}, 4) })
	assert.Panics(t, func() {
		vs.Store(append(votesFor(rejectHash(round(1, 0)), peers[0]), votesFor(rejectHash(round(1, 1)), peers[1])...), 4)
	})
}

func TestVoteStorageConcurrentVotesConverge(t *testing.T) {
	const n = 7
	peers := makePeers(n)
	vs := newTestVoteStorage(4)
	r := round(5, 0)
	hash := commitHash(r, 3)

	var (
		wg      sync.WaitGroup
		mtx     sync.Mutex
		answers []types.Answer
	)
	for _, p := range peers {
		wg.Add(1)
		go func(p *types.Peer) {
			defer wg.Done()
			if answer, ok := vs.Store(votesFor(hash, p), n); ok {
				mtx.Lock()
				answers = append(answers, answer)
				mtx.Unlock()
			}
		}(p)
	}
	wg.Wait()

	require.NotEmpty(t, answers)
	for _, a := range answers {
		assert.Equal(t, answers[0], a)
	}
	assert.True(t, vs.IsCommitted(r))
}
