package consensus

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"ledgercore/config"
	cstypes "ledgercore/consensus/types"
	"ledgercore/types"
)

// ----- utility func -----

func newConsensusState(t *testing.T, cfg *config.ConsensusConfig, numPeers int) (*ConsensusState, []*types.Peer) {
	t.Helper()
	peerSet, peers := types.RandPeerSet(numPeers)
	cs := NewConsensusState(cfg, peerSet)
	cs.SetLogger(log.TestingLogger())
	return cs, peers
}

func votesFor(hash types.VoteHash, peers []*types.Peer) []*types.Vote {
	votes := make([]*types.Vote, 0, len(peers))
	for _, p := range peers {
		votes = append(votes, types.NewVote(hash, p.Address))
	}
	return votes
}

func commitHash(round types.Round) types.VoteHash {
	return types.VoteHash{Round: round, ProposalHash: []byte("proposal"), BlockHash: []byte("block")}
}

func rejectHash(round types.Round) types.VoteHash {
	return types.VoteHash{Round: round}
}

func listen(t *testing.T, cs *ConsensusState, event string) chan types.Answer {
	ch := make(chan types.Answer, 10)
	require.NoError(t, cs.AddListener("test-"+event, event, func(answer types.Answer) {
		ch <- answer
	}))
	return ch
}

func waitAnswer(t *testing.T, ch chan types.Answer) types.Answer {
	select {
	case answer := <-ch:
		return answer
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for answer")
	}
	return types.Answer{}
}

// ----- tests -----

func TestConsensusCommitFiredOnce(t *testing.T) {
	defer leaktest.Check(t)()

	cs, peers := newConsensusState(t, config.TestConsensusConfig(), 4)
	commits := listen(t, cs, EventCommit)
	require.NoError(t, cs.Start())
	defer func() { require.NoError(t, cs.Stop()) }()

	round := types.NewRound(2, 0)
	for _, vote := range votesFor(commitHash(round), peers[:3]) {
		require.NoError(t, cs.AddVotes([]*types.Vote{vote}, "peer"))
	}

	answer := waitAnswer(t, commits)
	assert.True(t, answer.IsCommit())
	assert.Equal(t, round, answer.Round())
	assert.Len(t, answer.Votes, 3)

	// 之后的投票不会再次广播
	require.NoError(t, cs.AddVotes(votesFor(commitHash(round), peers[3:]), "peer"))
	select {
	case a := <-commits:
		t.Fatalf("unexpected second answer %v", a)
	case <-time.After(100 * time.Millisecond):
	}
	assert.True(t, cs.IsCommitted(round))
	assert.Contains(t, cs.JSONMetric().JSONString(), `"commit_num":1`)
}

func TestConsensusReject(t *testing.T) {
	cs, peers := newConsensusState(t, config.TestConsensusConfig(), 4)
	rejects := listen(t, cs, EventReject)

	round := types.NewRound(2, 1)
	_, ok := cs.handleVotes(msgInfo{Votes: votesFor(rejectHash(round), peers[:2])})
	assert.False(t, ok)

	answer, ok := cs.handleVotes(msgInfo{Votes: votesFor(rejectHash(round), peers[2:3])})
	require.True(t, ok)
	assert.Equal(t, types.RejectAnswer, answer.Type)
	assert.Equal(t, answer, waitAnswer(t, rejects))
	assert.False(t, cs.IsCommitted(round))
}

func TestConsensusDropsStrangers(t *testing.T) {
	cs, peers := newConsensusState(t, config.TestConsensusConfig(), 4)
	_, strangers := types.RandPeerSet(4)

	round := types.NewRound(3, 0)
	_, ok := cs.handleVotes(msgInfo{Votes: votesFor(commitHash(round), strangers)})
	assert.False(t, ok, "votes of non members never reach the storage")
	assert.Contains(t, cs.JSONMetric().JSONString(), `"dropped_votes_num":4`)

	// 成员的投票依然有效
	votes := append(votesFor(commitHash(round), strangers[:1]), votesFor(commitHash(round), peers[:3])...)
	answer, ok := cs.handleVotes(msgInfo{Votes: votes})
	require.True(t, ok)
	assert.Len(t, answer.Votes, 3)
}

func TestConsensusProcessingState(t *testing.T) {
	cs, peers := newConsensusState(t, config.TestConsensusConfig(), 4)
	round := types.NewRound(2, 0)

	assert.Equal(t, cstypes.NotSentNotProcessed, cs.ProcessingState(round))
	assert.False(t, cs.MarkProcessed(round), "nothing was sent yet")

	_, ok := cs.handleVotes(msgInfo{Votes: votesFor(commitHash(round), peers)})
	require.True(t, ok)
	assert.Equal(t, cstypes.SentNotProcessed, cs.ProcessingState(round))

	assert.True(t, cs.MarkProcessed(round))
	assert.Equal(t, cstypes.SentProcessed, cs.ProcessingState(round))
	assert.False(t, cs.MarkProcessed(round))
	assert.Equal(t, cstypes.SentProcessed, cs.ProcessingState(round))
}

func TestConsensusListenerMayMarkProcessed(t *testing.T) {
	cs, peers := newConsensusState(t, config.TestConsensusConfig(), 4)
	round := types.NewRound(2, 0)

	processed := make(chan bool, 1)
	require.NoError(t, cs.AddListener("gate", EventCommit, func(answer types.Answer) {
		processed <- cs.MarkProcessed(answer.Round())
	}))

	_, ok := cs.handleVotes(msgInfo{Votes: votesFor(commitHash(round), peers)})
	require.True(t, ok)
	assert.True(t, <-processed)
}

func TestAddVotesValidation(t *testing.T) {
	cfg := config.TestConsensusConfig()
	cfg.VoteQueueSize = 0
	cs, peers := newConsensusState(t, cfg, 4)

	assert.Equal(t, ErrEmptyVotes, cs.AddVotes(nil, "peer"))
	assert.Equal(t, types.ErrNilVote, cs.AddVotes([]*types.Vote{nil}, "peer"))

	mixed := append(
		votesFor(commitHash(types.NewRound(2, 0)), peers[:1]),
		votesFor(commitHash(types.NewRound(2, 1)), peers[1:2])...,
	)
	assert.Equal(t, ErrMixedRoundVotes, cs.AddVotes(mixed, "peer"))

	require.NoError(t, cs.Start())
	require.NoError(t, cs.Stop())
	assert.Equal(t, ErrConsensusStopped, cs.AddVotes(votesFor(commitHash(types.NewRound(2, 0)), peers[:1]), "peer"))
}

func TestConsensusMinRound(t *testing.T) {
	peerSet, peers := types.RandPeerSet(4)
	cs := NewConsensusState(config.TestConsensusConfig(), peerSet, WithMinRound(types.NewRound(5, 0)))

	_, ok := cs.handleVotes(msgInfo{Votes: votesFor(commitHash(types.NewRound(4, 3)), peers)})
	assert.False(t, ok)
	_, ok = cs.handleVotes(msgInfo{Votes: votesFor(commitHash(types.NewRound(5, 1)), peers)})
	assert.True(t, ok)
}

func TestConsensusMinRoundNextRound(t *testing.T) {
	peerSet, peers := types.RandPeerSet(4)

	// 创世之后水位线为零值，初始round的投票可以得到结果
	cs := NewConsensusState(config.TestConsensusConfig(), peerSet, WithMinRound(types.Round{}))
	answer, ok := cs.handleVotes(msgInfo{Votes: votesFor(rejectHash(types.NewRound(2, 0)), peers)})
	require.True(t, ok)
	assert.False(t, answer.IsCommit())

	// 重启之后水位线是最后提交的round，下一个round的投票可以得到结果
	last := types.NewRound(2, 2)
	cs = NewConsensusState(config.TestConsensusConfig(), peerSet, WithMinRound(last))
	next := last.NextCommit()
	answer, ok = cs.handleVotes(msgInfo{Votes: votesFor(commitHash(next), peers)})
	require.True(t, ok)
	assert.Equal(t, next, answer.Round())

	_, ok = cs.handleVotes(msgInfo{Votes: votesFor(commitHash(last), peers)})
	assert.False(t, ok)
}
