package ordering

import (
	"errors"
	"fmt"
	"time"

	"github.com/ef-ds/deque"
	"github.com/tendermint/tendermint/libs/log"
	tmsync "github.com/tendermint/tendermint/libs/sync"

	"ledgercore/config"
	"ledgercore/libs/metric"
	"ledgercore/libs/utils"
	"ledgercore/mempool"
	"ledgercore/types"
)

// OnDemandOrderingService 按round收集batch，在round结束时打包下一轮的proposal
// OnBatches和OnRequestProposal可以并发执行；OnCollaborationOutcome独占
type OnDemandOrderingService struct {
	mtx tmsync.RWMutex

	transactionLimit  int
	numberOfProposals int

	packer     *mempool.ProposalPacker
	proposals  map[types.Round]*types.Proposal
	roundQueue deque.Deque // types.Round，按打包顺序

	logger  log.Logger
	metrics *Metrics
}

type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger         log.Logger
	metrics        *Metrics
	mempoolMetrics *mempool.Metrics
	cache          mempool.ReplayCache
	now            func() time.Time
}

func WithLogger(logger log.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics, mempoolMetrics *mempool.Metrics) ServiceOption {
	return func(o *serviceOptions) {
		o.metrics = metrics
		o.mempoolMetrics = mempoolMetrics
	}
}

// WithReplayCache 打包时跳过已经提交或者正在处理的batch
func WithReplayCache(cache mempool.ReplayCache) ServiceOption {
	return func(o *serviceOptions) {
		o.cache = cache
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// NewOnDemandOrderingService 创建之后立即以cfg.InitialRound()推进一次窗口
// transaction_limit不为正数时panic
func NewOnDemandOrderingService(
	cfg *config.OrderingConfig,
	factory mempool.ProposalFactory,
	options ...ServiceOption,
) *OnDemandOrderingService {
	if cfg.TransactionLimit <= 0 {
		panic(fmt.Sprintf("transaction limit must be positive, got %d", cfg.TransactionLimit))
	}

	opts := serviceOptions{
		logger:         log.NewNopLogger(),
		metrics:        NopMetrics(),
		mempoolMetrics: mempool.NopMetrics(),
		now:            time.Now,
	}
	for _, option := range options {
		option(&opts)
	}

	packerOptions := []mempool.PackerOption{
		mempool.WithMetrics(opts.mempoolMetrics),
		mempool.WithClock(opts.now),
	}
	if opts.cache != nil {
		packerOptions = append(packerOptions, mempool.WithReplayCache(opts.cache))
	}
	packer := mempool.NewProposalPacker(mempool.NewBatchQueue(), factory, packerOptions...)
	packer.SetLogger(opts.logger.With("module", "packer"))

	ods := &OnDemandOrderingService{
		transactionLimit:  cfg.TransactionLimit,
		numberOfProposals: cfg.NumberOfProposals,
		packer:            packer,
		proposals:         make(map[types.Round]*types.Proposal),
		logger:            opts.logger,
		metrics:           opts.metrics,
	}

	ods.OnCollaborationOutcome(cfg.InitialRound())
	return ods
}

// OnBatches 把batch加入round的等待队列，不会改变已经生成的proposal
func (ods *OnDemandOrderingService) OnBatches(round types.Round, batches ...*types.TransactionBatch) {
	ods.mtx.RLock()
	defer ods.mtx.RUnlock()

	ods.logger.Debug("on batches", "round", round, "batches", len(batches))
	ods.packer.Queue().Enqueue(round, batches...)
}

// OnRequestProposal 返回round的proposal，没有打包或者已经被删除时返回false
func (ods *OnDemandOrderingService) OnRequestProposal(round types.Round) (*types.Proposal, bool) {
	ods.mtx.RLock()
	defer ods.mtx.RUnlock()

	p, ok := ods.proposals[round]
	if ok {
		ods.logger.Debug("on request proposal, returning a proposal", "round", round)
	} else {
		ods.logger.Debug("on request proposal, NOT returning a proposal", "round", round)
	}
	return p, ok
}

// OnCollaborationOutcome round有了结果，打包随后的round并删除旧的proposal
//
// 当前round为o，x为打包的round，v为之后接收batch的round:
//
//	  0 1 2              0 1 2 3
//	0 o x v            0 . o x v
//	1 x v .            1 x v . .
//	2 v . .            2 v . . .
//
// commit之后(r=0)打包(b, 1)和(b+1, 0)；reject之后只打包(b, r+1)
func (ods *OnDemandOrderingService) OnCollaborationOutcome(round types.Round) {
	ods.mtx.Lock()
	defer ods.mtx.Unlock()

	ods.logger.Info("on collaboration outcome", "round", round)
	packed := ods.packNextProposals(round)
	ods.tryErase(packed)

	ods.metrics.Proposals.Set(float64(len(ods.proposals)))
	ods.metrics.PendingBatches.Set(float64(ods.packer.Queue().Size()))
}

// packNextProposals 返回这次新打包的round
func (ods *OnDemandOrderingService) packNextProposals(round types.Round) map[types.Round]struct{} {
	queue := ods.packer.Queue()

	due := []types.Round{round.NextReject()}
	if round.RejectRound == types.FirstRejectRound {
		due = append(due, round.NextCommit())
	}

	target := types.NewRound(round.BlockRound+2, types.NextCommitRoundConsumer)
	carried := []*types.TransactionBatch{}
	packed := make(map[types.Round]struct{}, len(due))

	for _, r := range due {
		if _, ok := ods.proposals[r]; ok {
			ods.logger.Debug("proposal already packed", "round", r)
		} else if ods.packRound(r) {
			packed[r] = struct{}{}
		}
		carried = append(carried, queue.Remove(r)...)
	}

	if round.RejectRound == types.FirstRejectRound {
		open := map[types.Round]struct{}{
			types.NewRound(round.BlockRound+1, types.NextRejectRoundConsumer): {},
			target: {},
			types.NewRound(round.BlockRound, types.CurrentRejectRoundConsumer(round.RejectRound)): {},
		}
		for _, r := range queue.Rounds() {
			if _, ok := open[r]; ok {
				continue
			}
			carried = append(carried, queue.Remove(r)...)
		}
	}

	if len(carried) > 0 {
		ods.logger.Debug("carry batches", "to", target, "batches", len(carried))
		queue.Prepend(target, carried...)
		ods.metrics.CarriedBatches.Add(float64(len(carried)))
	}
	return packed
}

func (ods *OnDemandOrderingService) packRound(round types.Round) bool {
	proposal, err := ods.packer.Pack(round, round.BlockRound, ods.transactionLimit)
	switch {
	case errors.Is(err, mempool.ErrEmptyProposal):
		ods.logger.Debug("no transactions to pack", "round", round)
		return false
	case err != nil:
		ods.logger.Error("failed to pack proposal", "round", round, "err", err)
		return false
	}

	ods.proposals[round] = proposal
	ods.roundQueue.PushBack(round)
	ods.metrics.PackedProposals.Add(1)
	ods.logger.Info("packed proposal", "round", round, "txs", proposal.Size(), "hash", proposal.Hash())
	return true
}

// tryErase 保证proposal数不超过number_of_proposals
// 队首是commit round时删除一个，否则删除队首属于同一个block round的连续reject round，
// 连续删除时遇到这次刚打包的round停止
func (ods *OnDemandOrderingService) tryErase(packed map[types.Round]struct{}) {
	for len(ods.proposals) > ods.numberOfProposals && ods.roundQueue.Len() > 0 {
		v, _ := ods.roundQueue.PopFront()
		first := v.(types.Round)
		ods.erase(first)
		if first.IsCommitRound() {
			continue
		}

		for ods.roundQueue.Len() > 0 {
			v, _ := ods.roundQueue.Front()
			next := v.(types.Round)
			if next.IsCommitRound() || next.BlockRound != first.BlockRound {
				break
			}
			if _, ok := packed[next]; ok {
				break
			}
			ods.roundQueue.PopFront()
			ods.erase(next)
		}
	}
}

func (ods *OnDemandOrderingService) erase(round types.Round) {
	if _, ok := ods.proposals[round]; !ok {
		return
	}
	delete(ods.proposals, round)
	ods.metrics.EvictedProposals.Add(1)
	ods.logger.Info("erased proposal", "round", round)
}

// ProposalsLen 当前保存的proposal数
func (ods *OnDemandOrderingService) ProposalsLen() int {
	ods.mtx.RLock()
	defer ods.mtx.RUnlock()
	return len(ods.proposals)
}

// PendingBatches round队列中还没有被打包的batch
func (ods *OnDemandOrderingService) PendingBatches(round types.Round) []*types.TransactionBatch {
	ods.mtx.RLock()
	defer ods.mtx.RUnlock()
	return ods.packer.Queue().Batches(round)
}

// PendingSize 所有队列中的batch数
func (ods *OnDemandOrderingService) PendingSize() int {
	ods.mtx.RLock()
	defer ods.mtx.RUnlock()
	return ods.packer.Queue().Size()
}

// MempoolMetric 返回packer的json状态
func (ods *OnDemandOrderingService) MempoolMetric() metric.MetricItem {
	return ods.packer.JSONMetric()
}

// JSONMetric 返回可以注册到MetricSet的ordering状态
func (ods *OnDemandOrderingService) JSONMetric() metric.MetricItem {
	return metric.SnapshotFunc(func() interface{} {
		ods.mtx.RLock()
		defer ods.mtx.RUnlock()

		rounds := make([]types.Round, 0, len(ods.proposals))
		sizes := make([]float64, 0, len(ods.proposals))
		for r, p := range ods.proposals {
			rounds = append(rounds, r)
			sizes = append(sizes, float64(p.Size()))
		}
		return orderingMetric{
			ProposalsNum:  len(ods.proposals),
			Rounds:        sortRounds(rounds),
			MaxSize:       utils.Max(sizes...),
			MinSize:       utils.Min(sizes...),
			AvgSize:       utils.Avg(sizes...),
			MedianSize:    utils.Median(sizes...),
			QueuedRounds:  len(ods.packer.Queue().Rounds()),
			QueuedBatches: ods.packer.Queue().Size(),
		}
	})
}
