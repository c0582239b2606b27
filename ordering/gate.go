package ordering

import (
	"bytes"

	"github.com/ef-ds/deque"
	"github.com/tendermint/tendermint/libs/log"
	tmsync "github.com/tendermint/tendermint/libs/sync"

	"ledgercore/mempool"
	sm "ledgercore/state"
	"ledgercore/types"
)

// RoundProcessor 由consensus实现，gate处理完一个round的结果后通知它
type RoundProcessor interface {
	MarkProcessed(round types.Round) bool
}

// ProposalHandler 每进入一个新的round，用本地的proposal回调一次，没有proposal时ok为false
type ProposalHandler func(round types.Round, proposal *types.Proposal, ok bool)

// Gate 把consensus的结果转换为ordering service的窗口推进
// commit (b, r)之后进入(b+1, 0)，reject (b, r)之后进入(b, r+1)
type Gate struct {
	mtx     tmsync.RWMutex
	current types.Round
	state   sm.State

	service    *OnDemandOrderingService
	executor   *sm.BlockExecutor
	stateStore sm.Store
	processor  RoundProcessor
	cache      mempool.ReplayCache
	onProposal ProposalHandler

	// 本节点转发过的、还没有提交的batch，每个round重新发送
	batches deque.Deque

	logger  log.Logger
	metrics *Metrics
}

type GateOption func(*Gate)

// WithStateStore 每次提交之后保存state
func WithStateStore(store sm.Store) GateOption {
	return func(g *Gate) {
		g.stateStore = store
	}
}

func WithRoundProcessor(p RoundProcessor) GateOption {
	return func(g *Gate) {
		g.processor = p
	}
}

// WithBatchFilter 重新发送之前丢弃已经提交的batch
func WithBatchFilter(cache mempool.ReplayCache) GateOption {
	return func(g *Gate) {
		g.cache = cache
	}
}

func WithProposalHandler(h ProposalHandler) GateOption {
	return func(g *Gate) {
		g.onProposal = h
	}
}

func WithGateMetrics(metrics *Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = metrics
	}
}

// NewGate 从state的下一个round开始
func NewGate(service *OnDemandOrderingService, executor *sm.BlockExecutor, state sm.State, options ...GateOption) *Gate {
	g := &Gate{
		current:  state.CurrentRound(),
		state:    state,
		service:  service,
		executor: executor,
		logger:   log.NewNopLogger(),
		metrics:  NopMetrics(),
	}
	for _, option := range options {
		option(g)
	}
	return g
}

func (g *Gate) SetLogger(logger log.Logger) {
	g.logger = logger
}

// CurrentRound 正在进行共识的round
func (g *Gate) CurrentRound() types.Round {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return g.current
}

// State 最后一次提交之后的state
func (g *Gate) State() sm.State {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return g.state.Copy()
}

// PropagateBatch 客户端的batch交给当前round之后第二个reject round打包
func (g *Gate) PropagateBatch(batch *types.TransactionBatch) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.batches.PushBack(batch)
	g.service.OnBatches(propagationRound(g.current), batch)
}

// OnAnswer 处理一个round的结果，作为consensus EventCommit/EventReject的监听函数
func (g *Gate) OnAnswer(answer types.Answer) {
	round := answer.Round()

	g.mtx.Lock()
	defer g.mtx.Unlock()

	if round.Less(g.current) {
		g.logger.Info("ignore answer of a past round", "round", round, "current", g.current)
		g.markProcessed(round)
		return
	}

	proposal, ok := g.service.OnRequestProposal(round)
	if answer.IsCommit() {
		g.commit(round, answer, proposal, ok)
		g.current = round.NextCommit()
	} else {
		if ok {
			g.executor.RejectProposal(proposal)
		}
		g.current = round.NextReject()
	}
	g.logger.Debug("current round", "round", g.current, "answer", answer.Type)
	g.metrics.BlockRound.Set(float64(g.current.BlockRound))
	g.metrics.RejectRound.Set(float64(g.current.RejectRound))

	g.resendBatches()
	g.service.OnCollaborationOutcome(g.current)

	if g.onProposal != nil {
		next, ok := g.service.OnRequestProposal(g.current)
		g.onProposal(g.current, next, ok)
	}
	g.markProcessed(round)
}

func (g *Gate) commit(round types.Round, answer types.Answer, proposal *types.Proposal, ok bool) {
	if !ok {
		g.logger.Error("committed round has no local proposal", "round", round)
		return
	}
	if hash := answer.Hash(); !bytes.Equal(proposal.Hash(), hash.ProposalHash) {
		g.logger.Error("committed proposal differs from the local one",
			"round", round, "local", proposal.Hash(), "voted", hash.ProposalHash)
		return
	}

	newState, err := g.executor.ApplyProposal(g.state, proposal, answer.Votes)
	if err != nil {
		g.logger.Error("failed to apply proposal", "round", round, "err", err)
		return
	}
	g.state = newState
	g.forgetBatches(proposal.Txs())

	if g.stateStore != nil {
		if err := g.stateStore.Save(newState); err != nil {
			g.logger.Error("failed to save state", "height", newState.LastBlockHeight, "err", err)
		}
	}
}

// forgetBatches 删除交易已经提交的batch
func (g *Gate) forgetBatches(committed types.Txs) {
	keys := make(map[string]struct{}, len(committed))
	for _, tx := range committed {
		keys[tx.Key()] = struct{}{}
	}

	n := g.batches.Len()
	for i := 0; i < n; i++ {
		v, _ := g.batches.PopFront()
		batch := v.(*types.TransactionBatch)
		if !containsAny(keys, batch.Txs) {
			g.batches.PushBack(batch)
		}
	}
}

func containsAny(keys map[string]struct{}, txs types.Txs) bool {
	for _, tx := range txs {
		if _, ok := keys[tx.Key()]; ok {
			return true
		}
	}
	return false
}

// resendBatches 没有提交的batch重新交给新的round
func (g *Gate) resendBatches() {
	n := g.batches.Len()
	if n == 0 {
		return
	}

	resend := make([]*types.TransactionBatch, 0, n)
	for i := 0; i < n; i++ {
		v, _ := g.batches.PopFront()
		batch := v.(*types.TransactionBatch)
		if g.cache != nil && g.cache.Status(batch) == mempool.BatchCommitted {
			continue
		}
		resend = append(resend, batch)
		g.batches.PushBack(batch)
	}

	if len(resend) > 0 {
		g.service.OnBatches(propagationRound(g.current), resend...)
	}
}

func (g *Gate) markProcessed(round types.Round) {
	if g.processor != nil {
		g.processor.MarkProcessed(round)
	}
}

// CachedBatches 等待提交的batch数
func (g *Gate) CachedBatches() int {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return g.batches.Len()
}

func propagationRound(current types.Round) types.Round {
	return types.NewRound(current.BlockRound, types.CurrentRejectRoundConsumer(current.RejectRound))
}
