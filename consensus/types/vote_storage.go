package types

import (
	"fmt"

	"github.com/tendermint/tendermint/libs/log"
	tmsync "github.com/tendermint/tendermint/libs/sync"

	"ledgercore/types"
)

// VoteStorage 管理所有活跃round的ProposalStorage
// 创建和释放由CleanupStrategy决定，每个round的处理进度单独保存，不随ProposalStorage释放
type VoteStorage struct {
	mtx tmsync.RWMutex

	proposals map[types.Round]*ProposalStorage
	states    map[types.Round]ProposalState

	strategy   CleanupStrategy
	newChecker func() SupermajorityChecker

	logger log.Logger
}

type VoteStorageOption func(*VoteStorage)

// WithChecker 每个round使用checker函数创建的quorum判定
func WithChecker(newChecker func() SupermajorityChecker) VoteStorageOption {
	return func(vs *VoteStorage) {
		vs.newChecker = newChecker
	}
}

func NewVoteStorage(strategy CleanupStrategy, options ...VoteStorageOption) *VoteStorage {
	vs := &VoteStorage{
		proposals:  make(map[types.Round]*ProposalStorage),
		states:     make(map[types.Round]ProposalState),
		strategy:   strategy,
		newChecker: func() SupermajorityChecker { return BFTChecker{} },
		logger:     log.NewNopLogger(),
	}

	for _, opt := range options {
		opt(vs)
	}

	return vs
}

func (vs *VoteStorage) SetLogger(logger log.Logger) {
	vs.logger = logger
}

// Store 把同一个round的投票交给对应的ProposalStorage
// 返回(answer, true)表示该round已经有结果
// votes为空或者跨越多个round时panic
func (vs *VoteStorage) Store(votes []*types.Vote, peersInRound uint64) (types.Answer, bool) {
	round := checkSameRound(votes)

	vs.mtx.Lock()
	defer vs.mtx.Unlock()

	storage, ok := vs.proposals[round]
	if !ok {
		if !vs.strategy.ShouldCreateRound(round) {
			vs.logger.Debug("drop votes of retired round", "round", round, "votes", len(votes))
			return types.Answer{}, false
		}
		storage = NewProposalStorage(round, peersInRound, vs.newChecker())
		vs.proposals[round] = storage
		vs.logger.Debug("create proposal storage", "round", round, "peers", peersInRound)
	}

	answer, ok := storage.Insert(votes)
	if !ok {
		return types.Answer{}, false
	}

	for _, removed := range vs.strategy.Finalize(round) {
		delete(vs.proposals, removed)
		vs.logger.Debug("remove proposal storage", "round", removed)
	}

	return answer, true
}

// IsCommitted round存在投票状态并且结果为commit
func (vs *VoteStorage) IsCommitted(round types.Round) bool {
	vs.mtx.RLock()
	defer vs.mtx.RUnlock()

	storage, ok := vs.proposals[round]
	if !ok {
		return false
	}
	answer, ok := storage.State()
	return ok && answer.IsCommit()
}

// ProcessingState 没有记录的round处于NotSentNotProcessed
func (vs *VoteStorage) ProcessingState(round types.Round) ProposalState {
	vs.mtx.RLock()
	defer vs.mtx.RUnlock()

	return vs.states[round]
}

// AdvanceProcessingState 把round的处理进度前进一步，终态时不变
func (vs *VoteStorage) AdvanceProcessingState(round types.Round) ProposalState {
	vs.mtx.Lock()
	defer vs.mtx.Unlock()

	next := vs.states[round].Next()
	vs.states[round] = next
	return next
}

// Len 当前保存投票状态的round数
func (vs *VoteStorage) Len() int {
	vs.mtx.RLock()
	defer vs.mtx.RUnlock()

	return len(vs.proposals)
}

// HasRound round是否有投票状态
func (vs *VoteStorage) HasRound(round types.Round) bool {
	vs.mtx.RLock()
	defer vs.mtx.RUnlock()

	_, ok := vs.proposals[round]
	return ok
}

func checkSameRound(votes []*types.Vote) types.Round {
	if len(votes) == 0 {
		panic("store called with empty vote batch")
	}
	round := votes[0].Round()
	for _, v := range votes[1:] {
		if v.Round() != round {
			panic(fmt.Sprintf("vote batch spans several rounds: %v and %v", round, v.Round()))
		}
	}
	return round
}
