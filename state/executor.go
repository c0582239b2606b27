package state

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"

	"ledgercore/store"
	"ledgercore/types"
)

// Releaser 交易所在的proposal已经有了结果，释放pending标记
type Releaser interface {
	Release(txs types.Txs)
}

type BlockExecutorOption func(*BlockExecutor)

// WithReleaser 区块提交后释放对应交易的pending标记
func WithReleaser(r Releaser) BlockExecutorOption {
	return func(exec *BlockExecutor) {
		exec.releaser = r
	}
}

// BlockExecutor 把commit的proposal转换成区块写入BlockStore
type BlockExecutor struct {
	store    store.BlockStore
	releaser Releaser

	now func() time.Time

	logger log.Logger
}

func NewBlockExecutor(blockStore store.BlockStore, options ...BlockExecutorOption) *BlockExecutor {
	exec := &BlockExecutor{
		store:  blockStore,
		now:    time.Now,
		logger: log.NewNopLogger(),
	}
	for _, option := range options {
		option(exec)
	}
	return exec
}

func (exec *BlockExecutor) SetLogger(logger log.Logger) {
	exec.logger = logger
}

func (exec *BlockExecutor) Store() store.BlockStore {
	return exec.store
}

// ApplyProposal apply一个已经commit的proposal，votes是commit answer中的投票
// 提交成功后返回新的state，失败时返回原来的state
func (exec *BlockExecutor) ApplyProposal(state State, proposal *types.Proposal, votes []*types.Vote) (State, error) {
	if proposal == nil {
		return state, ErrNilProposal
	}
	if state.LastBlockHeight > 0 && proposal.Height() <= state.LastBlockHeight {
		return state, ErrStaleProposal{Height: proposal.Height(), LastHeight: state.LastBlockHeight}
	}

	block := types.MakeBlock(state.ChainID, proposal, state.LastBlockHash, votes)
	if err := block.ValidateBasic(); err != nil {
		return state, ErrInvalidBlock{Err: err}
	}

	ok, err := exec.store.Insert(block)
	if err != nil {
		return state, errors.Wrapf(err, "insert block %d", block.Height())
	}
	if !ok {
		return state, ErrBlockExisted
	}

	exec.logger.Info("committed block",
		"height", block.Height(),
		"round", block.Header.Round,
		"txs", len(block.Txs()),
		"hash", block.Hash())

	if exec.releaser != nil {
		exec.releaser.Release(block.Txs())
	}

	newState := state.Copy()
	newState.LastBlockHeight = block.Height()
	newState.LastBlockRound = block.Header.Round
	newState.LastBlockHash = block.Hash()
	newState.LastBlockTime = exec.now()
	return newState, nil
}

// RejectProposal proposal没有被接受，释放其中交易的pending标记
// 交易不会自动重新提交
func (exec *BlockExecutor) RejectProposal(proposal *types.Proposal) {
	if proposal == nil || exec.releaser == nil {
		return
	}
	exec.releaser.Release(proposal.Txs())
	exec.logger.Debug("released rejected proposal", "round", proposal.Round(), "txs", proposal.Size())
}
