package node

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"ledgercore/config"
	"ledgercore/privval"
	"ledgercore/store"
	"ledgercore/types"
)

type testNet struct {
	config  *config.Config
	nodeKey *privval.FilePV
	keys    []*privval.FilePV
	peers   *types.PeerSet
}

func newTestNet(t *testing.T) *testNet {
	t.Helper()
	root, err := ioutil.TempDir("", "node_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })

	cfg := config.TestConfig().SetRoot(root)
	cfg.DBBackend = store.GoLevelDBBackend
	cfg.RPC.ListenAddress = "tcp://127.0.0.1:0"
	config.EnsureRoot(root)

	keys := make([]*privval.FilePV, 4)
	peers := make([]*types.Peer, len(keys))
	for i := range keys {
		keys[i] = privval.GenFilePV("")
		peers[i] = keys[i].Peer()
	}
	return &testNet{
		config:  cfg,
		nodeKey: keys[0],
		keys:    keys,
		peers:   types.NewPeerSet(peers),
	}
}

func (tn *testNet) newNode(t *testing.T) *Node {
	n, err := NewNode(tn.config, tn.nodeKey, tn.peers,
		DefaultDBProvider, DefaultMetricsProvider(tn.config.Instrumentation), log.TestingLogger())
	require.NoError(t, err)
	return n
}

func (tn *testNet) votes(t *testing.T, hash types.VoteHash) []*types.Vote {
	votes := make([]*types.Vote, 0, len(tn.keys))
	for _, k := range tn.keys {
		vote := &types.Vote{Hash: hash}
		require.NoError(t, k.SignVote(tn.config.ChainID, vote))
		votes = append(votes, vote)
	}
	return votes
}

func waitRound(t *testing.T, n *Node, round types.Round) {
	require.Eventually(t, func() bool {
		return n.Gate().CurrentRound() == round
	}, 5*time.Second, 10*time.Millisecond, "waiting for round %v", round)
}

func TestNodeStartStop(t *testing.T) {
	tn := newTestNet(t)
	n := tn.newNode(t)

	require.NoError(t, n.Start())
	assert.Len(t, n.RPCListeners(), 1)
	assert.True(t, n.NodeInfo().IsPeer)
	assert.Equal(t, tn.config.ChainID, n.NodeInfo().ChainID)
	assert.ElementsMatch(t, []string{"consensus", "mempool", "ordering"}, n.MetricSet().Labels())

	require.NoError(t, n.Stop())
}

func TestNodeCommitAndRestart(t *testing.T) {
	tn := newTestNet(t)
	n := tn.newNode(t)
	require.NoError(t, n.Start())

	batch := types.NewTransactionBatch(types.Tx("a"), types.Tx("b"))
	n.Gate().PropagateBatch(batch)

	// (2, 0)和(2, 1)被拒绝，batch在(2, 2)中被打包
	cs := n.ConsensusState()
	require.NoError(t, cs.AddVotes(tn.votes(t, types.VoteHash{Round: types.NewRound(2, 0)}), "test"))
	waitRound(t, n, types.NewRound(2, 1))
	require.NoError(t, cs.AddVotes(tn.votes(t, types.VoteHash{Round: types.NewRound(2, 1)}), "test"))
	waitRound(t, n, types.NewRound(2, 2))

	proposal, ok := n.OrderingService().OnRequestProposal(types.NewRound(2, 2))
	require.True(t, ok)
	assert.Equal(t, batch.Txs, proposal.Txs())

	require.NoError(t, cs.AddVotes(tn.votes(t, types.VoteHash{
		Round:        types.NewRound(2, 2),
		ProposalHash: proposal.Hash(),
	}), "test"))
	waitRound(t, n, types.NewRound(3, 0))

	assert.Equal(t, uint64(2), n.BlockStore().LastHeight())
	assert.True(t, n.BlockStore().HasTx(types.Tx("a").Hash()))
	require.NoError(t, n.Stop())

	// 重启之后从提交的区块继续
	n = tn.newNode(t)
	assert.Equal(t, types.NewRound(3, 0), n.Gate().CurrentRound())
	assert.Equal(t, uint64(2), n.Gate().State().LastBlockHeight)
	assert.Equal(t, uint64(2), n.BlockStore().LastHeight())
	require.NoError(t, n.Start())
	require.NoError(t, n.Stop())
}

func TestNewNodeInvalidConfig(t *testing.T) {
	tn := newTestNet(t)
	tn.config.Ordering.TransactionLimit = 0

	_, err := NewNode(tn.config, tn.nodeKey, tn.peers,
		DefaultDBProvider, DefaultMetricsProvider(tn.config.Instrumentation), log.TestingLogger())
	assert.Error(t, err)
}
