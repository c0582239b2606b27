package mempool

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"

	"ledgercore/libs/metric"
	"ledgercore/types"
)

// ProposalPacker 从BatchQueue中取出完整的batch生成proposal
// batch不会被拆分：第一个batch即使超过limit也会被整体打包，
// 之后遇到第一个放不下的batch就停止，它和后面的batch留在队列中
type ProposalPacker struct {
	queue   *BatchQueue
	cache   ReplayCache
	factory ProposalFactory

	now func() time.Time

	logger  log.Logger
	metrics *Metrics
	metric  *memMetric
}

type PackerOption func(*ProposalPacker)

// WithReplayCache 打包前使用cache过滤已经处理过的batch
func WithReplayCache(cache ReplayCache) PackerOption {
	return func(p *ProposalPacker) {
		p.cache = cache
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) PackerOption {
	return func(p *ProposalPacker) {
		p.metrics = metrics
	}
}

// WithClock 替换proposal创建时间的来源
func WithClock(now func() time.Time) PackerOption {
	return func(p *ProposalPacker) {
		p.now = now
	}
}

func NewProposalPacker(queue *BatchQueue, factory ProposalFactory, options ...PackerOption) *ProposalPacker {
	p := &ProposalPacker{
		queue:   queue,
		cache:   nopReplayCache{},
		factory: factory,
		now:     time.Now,
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
		metric:  newMemMetric(queue),
	}

	for _, option := range options {
		option(p)
	}

	return p
}

func (p *ProposalPacker) SetLogger(logger log.Logger) {
	p.logger = logger
}

// JSONMetric 返回可以注册到MetricSet的mempool状态
func (p *ProposalPacker) JSONMetric() metric.MetricItem {
	return p.metric
}

// Queue 返回packer使用的队列
func (p *ProposalPacker) Queue() *BatchQueue {
	return p.queue
}

// Pack 打包round队列中的batch，limit为交易条数的软上限
// factory拒绝空交易列表时返回ErrEmptyProposal；limit不为正数时panic
func (p *ProposalPacker) Pack(round types.Round, height uint64, limit int) (*types.Proposal, error) {
	if limit <= 0 {
		panic(fmt.Sprintf("transaction limit must be positive, got %d", limit))
	}

	var (
		taken []*types.TransactionBatch
		total int
		seen  = make(map[string]struct{})
	)

	for {
		batch, ok := p.queue.Front(round)
		if !ok {
			break
		}

		key := batch.Key()
		if _, dup := seen[key]; dup {
			p.queue.PopFront(round)
			p.logger.Debug("skip duplicate batch", "round", round, "batch", key)
			p.metrics.SkippedBatches.Add(1)
			p.metric.MarkSkipped()
			continue
		}
		if status := p.cache.Status(batch); status != BatchAbsent {
			p.queue.PopFront(round)
			p.logger.Info("skip processed batch", "round", round, "batch", key, "status", status)
			p.metrics.SkippedBatches.Add(1)
			p.metric.MarkSkipped()
			continue
		}

		if len(taken) > 0 && total+batch.Size() > limit {
			break
		}

		p.queue.PopFront(round)
		seen[key] = struct{}{}
		taken = append(taken, batch)
		total += batch.Size()
	}

	proposal, err := p.factory.BuildProposal(round, types.BatchesTxs(taken), height, p.now())
	if err != nil {
		// 没有生成proposal，batch放回原处
		p.queue.Prepend(round, taken...)
		if errors.Is(err, ErrEmptyProposal) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "build proposal for round %v", round)
	}

	if tracker, ok := p.cache.(PendingTracker); ok {
		tracker.MarkPending(taken...)
	}

	p.metrics.PackedBatches.Add(float64(len(taken)))
	p.metrics.ProposalSize.Observe(float64(total))
	p.metrics.PendingBatches.Set(float64(p.queue.Size()))
	p.metric.MarkPacked(len(taken), total)
	p.logger.Debug("packed proposal", "round", round, "batches", len(taken), "txs", total)

	return proposal, nil
}
