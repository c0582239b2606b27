package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ledgercore/types"
)

func makePeers(n int) []*types.Peer {
	_, peers := types.RandPeerSet(n)
	return peers
}

func commitHash(r types.Round, id byte) types.VoteHash {
	return types.VoteHash{Round: r, ProposalHash: []byte{id}, BlockHash: []byte{id, id}}
}

func rejectHash(r types.Round) types.VoteHash {
	return types.VoteHash{Round: r}
}

func votesFor(hash types.VoteHash, peers ...*types.Peer) []*types.Vote {
	votes := make([]*types.Vote, len(peers))
	for i, p := range peers {
		votes[i] = types.NewVote(hash, p.Address)
	}
	return votes
}

func TestSupermajorityCheckers(t *testing.T) {
	bft := BFTChecker{}
	assert.False(t, bft.HasSupermajority(2, 4))
	assert.True(t, bft.HasSupermajority(3, 4))
	assert.False(t, bft.HasSupermajority(2, 3))
	assert.True(t, bft.HasSupermajority(3, 3))
	assert.False(t, bft.HasSupermajority(5, 4), "more votes than peers")

	cft := CFTChecker{}
	assert.False(t, cft.HasSupermajority(2, 4))
	assert.True(t, cft.HasSupermajority(3, 4))
	assert.True(t, cft.HasSupermajority(2, 3))

	m, ok := ParseConsistencyModel("cft")
	require.True(t, ok)
	assert.IsType(t, CFTChecker{}, NewSupermajorityChecker(m))
	_, ok = ParseConsistencyModel("paxos")
	assert.False(t, ok)
}

func TestProposalStorageCommit(t *testing.T) {
	peers := makePeers(4)
	r := round(1, 0)
	hash := commitHash(r, 1)
	ps := NewProposalStorage(r, 4, BFTChecker{})

	_, ok := ps.Insert(votesFor(hash, peers[0], peers[1]))
	assert.False(t, ok)
	_, ok = ps.State()
	assert.False(t, ok)

	answer, ok := ps.Insert(votesFor(hash, peers[2]))
	require.True(t, ok)
	assert.Equal(t, types.CommitAnswer, answer.Type)
	assert.Len(t, answer.Votes, 3)
	assert.Equal(t, r, ps.Key())

	// 之后的投票不改变结果
	again, ok := ps.Insert(votesFor(rejectHash(r), peers[3]))
	require.True(t, ok)
	assert.Equal(t, answer, again)
	state, _ := ps.State()
	assert.Equal(t, answer, state)
}

func TestProposalStorageReject(t *testing.T) {
	peers := makePeers(4)
	r := round(2, 1)
	ps := NewProposalStorage(r, 4, BFTChecker{})

	answer, ok := ps.Insert(votesFor(rejectHash(r), peers[:3]...))
	require.True(t, ok)
	assert.Equal(t, types.RejectAnswer, answer.Type)
	assert.False(t, answer.IsCommit())
}

func TestProposalStorageIgnoresDuplicatesAndStrangers(t *testing.T) {
	peers := makePeers(4)
	r := round(1, 0)
	hash := commitHash(r, 7)
	ps := NewProposalStorage(r, 4, BFTChecker{})

	// 同一个节点重复投票只算一次
	_, ok := ps.Insert(votesFor(hash, peers[0], peers[0], peers[0], peers[1], peers[1]))
	assert.False(t, ok)
	assert.Equal(t, 2, ps.VotesCount())

	// 同一个节点改投其他结果也被忽略
	_, ok = ps.Insert(votesFor(commitHash(r, 8), peers[0]))
	assert.False(t, ok)

	// 其他round的投票被忽略
	_, ok = ps.Insert(votesFor(commitHash(round(1, 1), 7), peers[2]))
	assert.False(t, ok)
	assert.Equal(t, 2, ps.VotesCount())

	_, ok = ps.Insert(votesFor(hash, peers[3]))
	assert.True(t, ok)
}

func TestProposalStorageSplitVotes(t *testing.T) {
	peers := makePeers(4)
	r := round(1, 0)
	ps := NewProposalStorage(r, 4, BFTChecker{})

	_, ok := ps.Insert(append(votesFor(commitHash(r, 1), peers[0], peers[1]), votesFor(commitHash(r, 2), peers[2], peers[3])...))
	assert.False(t, ok)
	assert.Equal(t, 4, ps.VotesCount())
}

func TestProposalStorageProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 7).Draw(t, "peers")
		peers := makePeers(n)
		r := round(3, 0)
		hashes := []types.VoteHash{commitHash(r, 1), commitHash(r, 2), rejectHash(r)}
		checker := BFTChecker{}
		ps := NewProposalStorage(r, uint64(n), checker)

		counts := map[string]map[string]struct{}{}
		voted := map[string]struct{}{}
		var frozen *types.Answer

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			p := peers[rapid.IntRange(0, n-1).Draw(t, "peer")]
			h := hashes[rapid.IntRange(0, len(hashes)-1).Draw(t, "hash")]

			answer, ok := ps.Insert(votesFor(h, p))

			if frozen != nil {
				if !ok || answer.Type != frozen.Type || len(answer.Votes) != len(frozen.Votes) {
					t.Fatalf("answer changed from %v to %v", frozen, answer)
				}
				continue
			}

			if _, seen := voted[p.Address.Key()]; !seen {
				voted[p.Address.Key()] = struct{}{}
				if counts[h.Key()] == nil {
					counts[h.Key()] = map[string]struct{}{}
				}
				counts[h.Key()][p.Address.Key()] = struct{}{}
			}
			leader := 0
			for _, c := range counts {
				if len(c) > leader {
					leader = len(c)
				}
			}

			if checker.HasSupermajority(uint64(leader), uint64(n)) != ok {
				t.Fatalf("leader has %d of %d votes, resolved=%v", leader, n, ok)
			}
			if ok {
				frozen = &answer
			}
		}
	})
}

func TestProposalStorageAnswerFrozen(t *testing.T) {
	peers := makePeers(4)
	evil := makePeers(1)[0]
	r := round(1, 0)
	ps := NewProposalStorage(r, 4, BFTChecker{})

	input := votesFor(commitHash(r, 1), peers[:3]...)
	answer, ok := ps.Insert(input)
	require.True(t, ok)

	// 修改返回的answer和传入的投票都不影响冻结的结果
	answer.Votes[0] = types.NewVote(commitHash(r, 2), evil.Address)
	answer.Votes[1].Signer = evil.Address
	input[2].Hash.ProposalHash[0] = 9

	state, ok := ps.State()
	require.True(t, ok)
	require.Len(t, state.Votes, 3)
	for i, vote := range state.Votes {
		assert.Equal(t, peers[i].Address, vote.Signer)
		assert.Equal(t, commitHash(r, 1), vote.Hash)
	}

	state.Votes = state.Votes[:1]
	again, ok := ps.State()
	require.True(t, ok)
	assert.Len(t, again.Votes, 3)
}
