package consensus

import (
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"
	tmsync "github.com/tendermint/tendermint/libs/sync"

	"ledgercore/config"
	cstypes "ledgercore/consensus/types"
	"ledgercore/libs/metric"
	"ledgercore/types"
)

// ------ Event ------
// gate监听的consensus广播事件，event data为types.Answer
const (
	EventCommit = "Commit"
	EventReject = "Reject"
)

// 投票聚合服务
// 网络上收到的投票先进入peerMsgQueue，由receiveRoutine串行交给VoteStorage
type ConsensusState struct {
	service.BaseService

	config *config.ConsensusConfig

	// 参与投票的节点
	mtx   tmsync.RWMutex
	peers *types.PeerSet

	// 投票状态和处理进度
	votes *cstypes.VoteStorage

	// 通信管道
	peerMsgQueue chan msgInfo       // 处理来自其他节点的投票
	eventSwitch  events.EventSwitch // consensus和gate之间通信的组件 - 事件模型

	metrics *Metrics
	metric  *consensusMetric
}

type ConsensusOption func(*ConsensusState)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) ConsensusOption {
	return func(cs *ConsensusState) {
		cs.metrics = metrics
	}
}

// WithMinRound 不再接受不大于minRound的round的投票
func WithMinRound(minRound types.Round) ConsensusOption {
	return func(cs *ConsensusState) {
		cs.votes = newVoteStorage(cs.config, minRound)
	}
}

func NewConsensusState(
	config *config.ConsensusConfig,
	peers *types.PeerSet,
	options ...ConsensusOption,
) *ConsensusState {
	cs := &ConsensusState{
		config:       config,
		peers:        peers,
		votes:        newVoteStorage(config, types.Round{}),
		peerMsgQueue: make(chan msgInfo, config.VoteQueueSize),
		eventSwitch:  events.NewEventSwitch(),
		metrics:      NopMetrics(),
		metric:       newConsensusMetric(),
	}
	cs.BaseService = *service.NewBaseService(nil, "CONSENSUS", cs)

	for _, opt := range options {
		opt(cs)
	}

	return cs
}

func newVoteStorage(config *config.ConsensusConfig, minRound types.Round) *cstypes.VoteStorage {
	model, ok := cstypes.ParseConsistencyModel(config.ConsistencyModel)
	if !ok {
		panic("unknown consistency model " + config.ConsistencyModel)
	}
	return cstypes.NewVoteStorage(
		cstypes.NewBufferedCleanupStrategy(config.VoteStorageSize, minRound, nil),
		cstypes.WithChecker(func() cstypes.SupermajorityChecker {
			return cstypes.NewSupermajorityChecker(model)
		}),
	)
}

func (cs *ConsensusState) SetLogger(logger log.Logger) {
	cs.BaseService.SetLogger(logger)
	cs.votes.SetLogger(logger.With("module", "votes"))
	cs.eventSwitch.SetLogger(logger.With("module", "events"))
}

func (cs *ConsensusState) OnStart() error {
	if err := cs.eventSwitch.Start(); err != nil {
		return err
	}
	go cs.receiveRoutine()
	cs.Logger.Info("consensus receive routine started.")
	return nil
}

func (cs *ConsensusState) OnStop() {
	if err := cs.eventSwitch.Stop(); err != nil {
		cs.Logger.Error("failed trying to stop eventSwitch", "error", err)
	}
	cs.Logger.Info("consensus server stopped.")
}

// AddListener 注册EventCommit/EventReject的监听函数
// 监听函数在receiveRoutine中同步执行
func (cs *ConsensusState) AddListener(listenerID, event string, cb func(types.Answer)) error {
	return cs.eventSwitch.AddListenerForEvent(listenerID, event, func(data events.EventData) {
		cb(data.(types.Answer))
	})
}

// AddVotes 把一批投票交给receiveRoutine
// 投票必须属于同一个round，签名者必须是PeerSet中的节点；非成员的投票被丢弃
func (cs *ConsensusState) AddVotes(votes []*types.Vote, peerID string) error {
	if err := validateVotes(votes); err != nil {
		return err
	}

	select {
	case cs.peerMsgQueue <- msgInfo{Votes: votes, PeerID: peerID}:
		return nil
	case <-cs.Quit():
		return ErrConsensusStopped
	}
}

// receiveRoutine负责接收所有的投票
func (cs *ConsensusState) receiveRoutine() {
	cs.Logger.Debug("consensus receive routine starts.")
	for {
		select {
		case <-cs.Quit():
			cs.Logger.Info("receiveRoutine quit.")
			return

		case mi := <-cs.peerMsgQueue:
			cs.handleVotes(mi)
		}
	}
}

// handleVotes 过滤非成员的投票后交给VoteStorage
// 某个round第一次得到结果时广播一次事件
func (cs *ConsensusState) handleVotes(mi msgInfo) (types.Answer, bool) {
	cs.mtx.RLock()
	peers := cs.peers
	cs.mtx.RUnlock()

	accepted := make([]*types.Vote, 0, len(mi.Votes))
	for _, vote := range mi.Votes {
		if peers.IsNilOrEmpty() || !peers.HasAddress(vote.Signer) {
			cs.Logger.Debug("drop vote from stranger", "peer", mi.PeerID, "err", ErrNotMember{Signer: vote.Signer})
			continue
		}
		accepted = append(accepted, vote)
	}
	if dropped := len(mi.Votes) - len(accepted); dropped > 0 {
		cs.metrics.DroppedVotes.Add(float64(dropped))
		cs.metric.MarkDropped(dropped)
	}
	if len(accepted) == 0 {
		return types.Answer{}, false
	}

	round := accepted[0].Round()
	answer, ok := cs.votes.Store(accepted, peers.PeersInRound(round))
	cs.metrics.VoteBatches.Add(1)
	cs.metrics.TrackedRounds.Set(float64(cs.votes.Len()))
	cs.metric.MarkTrackedRounds(cs.votes.Len())
	if !ok {
		return types.Answer{}, false
	}

	if !cs.tryMarkSent(round) {
		// 结果已经广播过
		return answer, true
	}

	cs.Logger.Info("round finished", "round", round, "answer", answer)
	cs.metrics.Answers.With("type", answer.Type.String()).Add(1)
	cs.metric.MarkAnswer(answer)

	// 监听函数可能会回调MarkProcessed，不能持有锁
	if answer.IsCommit() {
		cs.eventSwitch.FireEvent(EventCommit, answer)
	} else {
		cs.eventSwitch.FireEvent(EventReject, answer)
	}
	return answer, true
}

// tryMarkSent NotSentNotProcessed -> SentNotProcessed
func (cs *ConsensusState) tryMarkSent(round types.Round) bool {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	if cs.votes.ProcessingState(round) != cstypes.NotSentNotProcessed {
		return false
	}
	cs.votes.AdvanceProcessingState(round)
	return true
}

// MarkProcessed 结果已经被应用，SentNotProcessed -> SentProcessed
// 其他状态下不变，返回false
func (cs *ConsensusState) MarkProcessed(round types.Round) bool {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	if cs.votes.ProcessingState(round) != cstypes.SentNotProcessed {
		return false
	}
	cs.votes.AdvanceProcessingState(round)
	cs.metric.MarkProcessed(round)
	return true
}

// ProcessingState round结果的处理进度
func (cs *ConsensusState) ProcessingState(round types.Round) cstypes.ProposalState {
	return cs.votes.ProcessingState(round)
}

// IsCommitted round的投票结果是否为commit
func (cs *ConsensusState) IsCommitted(round types.Round) bool {
	return cs.votes.IsCommitted(round)
}

// SetPeerSet 替换参与投票的节点，只影响之后创建的round
func (cs *ConsensusState) SetPeerSet(peers *types.PeerSet) {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	cs.peers = peers
}

func (cs *ConsensusState) PeerSet() *types.PeerSet {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()
	return cs.peers
}

// JSONMetric 返回可以注册到MetricSet的consensus状态
func (cs *ConsensusState) JSONMetric() metric.MetricItem {
	return cs.metric
}

func validateVotes(votes []*types.Vote) error {
	if len(votes) == 0 {
		return ErrEmptyVotes
	}
	for _, vote := range votes {
		if err := vote.ValidateBasic(); err != nil {
			return err
		}
	}
	round := votes[0].Round()
	for _, vote := range votes[1:] {
		if vote.Round() != round {
			return ErrMixedRoundVotes
		}
	}
	return nil
}

// ----- MsgInfo -----
type msgInfo struct {
	Votes  []*types.Vote
	PeerID string
}
