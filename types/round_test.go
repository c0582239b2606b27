package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundOrdering(t *testing.T) {
	testCases := []struct {
		a, b Round
		cmp  int
	}{
		{NewRound(1, 0), NewRound(1, 0), 0},
		{NewRound(1, 0), NewRound(1, 1), -1},
		{NewRound(1, 9), NewRound(2, 0), -1},
		{NewRound(3, 0), NewRound(2, 7), 1},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.cmp, tc.a.Compare(tc.b), "%v vs %v", tc.a, tc.b)
		assert.Equal(t, -tc.cmp, tc.b.Compare(tc.a), "%v vs %v", tc.b, tc.a)
	}

	assert.Equal(t, NewRound(2, 1), MaxRound(NewRound(2, 1), NewRound(1, 5)))
	assert.Equal(t, NewRound(1, 1), NewRound(1, 0).NextReject())
	assert.Equal(t, NewRound(2, 0), NewRound(1, 3).NextCommit())
	assert.True(t, NewRound(5, 0).IsCommitRound())
	assert.Equal(t, "(4, 2)", NewRound(4, 2).String())
}

// Round作为map key时，相等的值命中同一个entry
func TestRoundAsMapKey(t *testing.T) {
	m := map[Round]int{}
	m[NewRound(1, 2)] = 1
	m[Round{BlockRound: 1, RejectRound: 2}]++

	assert.Len(t, m, 1)
	assert.Equal(t, 2, m[NewRound(1, 2)])
}

func TestProposalIsImmutable(t *testing.T) {
	txs := Txs{Tx("a"), Tx("b")}
	p := NewProposal(NewRound(2, 0), 2, time.Unix(100, 0), txs)
	hash := p.Hash()

	// 修改输入和返回值都不影响proposal
	txs[0] = Tx("x")
	got := p.Txs()
	got[1] = Tx("y")

	assert.Equal(t, Txs{Tx("a"), Tx("b")}, p.Txs())
	assert.Equal(t, hash, p.Hash())

	same := NewProposal(NewRound(2, 0), 2, time.Unix(100, 0), Txs{Tx("a"), Tx("b")})
	assert.Equal(t, hash, same.Hash())
}

func TestBatchIdentity(t *testing.T) {
	b1 := NewTransactionBatch(Tx("1"), Tx("2"))
	b2 := NewTransactionBatch(Tx("1"), Tx("2"))
	b3 := NewTransactionBatch(Tx("2"), Tx("1"))

	assert.Equal(t, b1.Key(), b2.Key())
	assert.NotEqual(t, b1.Key(), b3.Key())
	assert.Equal(t, 2, b1.Size())
	require.Error(t, NewTransactionBatch().ValidateBasic())
	assert.Equal(t, Txs{Tx("1"), Tx("2"), Tx("2"), Tx("1")}, BatchesTxs([]*TransactionBatch{b1, b3}))
}

func TestVoteHashEmpty(t *testing.T) {
	assert.True(t, VoteHash{Round: NewRound(1, 0)}.IsEmpty())
	assert.False(t, VoteHash{Round: NewRound(1, 0), ProposalHash: []byte{1}}.IsEmpty())

	a := VoteHash{Round: NewRound(1, 0), ProposalHash: []byte{1}, BlockHash: []byte{2}}
	b := VoteHash{Round: NewRound(1, 0), ProposalHash: []byte{1}, BlockHash: []byte{2}}
	assert.Equal(t, a.Key(), b.Key())
}

func TestPeerSet(t *testing.T) {
	ps, peers := RandPeerSet(4)
	require.NoError(t, ps.ValidateBasic())

	assert.Equal(t, 4, ps.Size())
	assert.Equal(t, uint64(4), ps.PeersInRound(NewRound(1, 0)))
	for _, p := range peers {
		assert.True(t, ps.HasAddress(p.Address))
	}

	stranger, _ := RandPeer()
	assert.False(t, ps.HasAddress(stranger.Address))

	var empty *PeerSet
	assert.Equal(t, ErrEmptyPeerSet, empty.ValidateBasic())
}

func TestMakeBlock(t *testing.T) {
	p := NewProposal(NewRound(3, 1), 3, time.Unix(10, 0), Txs{Tx("t")})
	peer, _ := RandPeer()
	votes := []*Vote{NewVote(VoteHash{Round: p.Round(), ProposalHash: p.Hash()}, peer.Address)}

	b := MakeBlock("chain", p, []byte("last"), votes)
	require.NoError(t, b.ValidateBasic())
	assert.Equal(t, uint64(3), b.Height())
	assert.Equal(t, p.Hash(), b.Header.ProposalHash)
	assert.NotEmpty(t, b.Hash())
}

func TestProposalHashImmutable(t *testing.T) {
	p := NewProposal(NewRound(2, 0), 2, time.Unix(0, 0), Txs{Tx("a")})
	want := append([]byte(nil), p.Hash()...)

	h := p.Hash()
	h[0] ^= 0xff
	assert.Equal(t, want, []byte(p.Hash()))
}

func TestProposalHashIgnoresCreatedTime(t *testing.T) {
	txs := Txs{Tx("a"), Tx("b")}
	p1 := NewProposal(NewRound(3, 1), 3, time.Unix(10, 0), txs)
	p2 := NewProposal(NewRound(3, 1), 3, time.Unix(20, 0), txs)
	assert.Equal(t, p1.Hash(), p2.Hash())

	p3 := NewProposal(NewRound(3, 2), 3, time.Unix(10, 0), txs)
	assert.NotEqual(t, p1.Hash(), p3.Hash())
	p4 := NewProposal(NewRound(3, 1), 3, time.Unix(10, 0), Txs{Tx("a")})
	assert.NotEqual(t, p1.Hash(), p4.Hash())
}
