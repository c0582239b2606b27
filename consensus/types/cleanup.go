package types

import (
	"fmt"

	"github.com/ef-ds/deque"

	"ledgercore/types"
)

// CleanupStrategy 决定哪些round的投票状态可以释放，以及是否允许为某个round创建投票状态
type CleanupStrategy interface {
	// Finalize 通知round已经产生了answer，返回需要释放的round
	Finalize(round types.Round) []types.Round

	// ShouldCreateRound 是否允许为round创建新的投票状态
	ShouldCreateRound(round types.Round) bool
}

// BufferedCleanupStrategy 用定长FIFO保存最近产生answer的round
// minRound是单调不减的水位线，不大于水位线的round不能再创建投票状态
//
// NOTE: Finalize总是把round放入FIFO，即使round不大于水位线，
// 因此重复提交过期round会占用FIFO的容量，使较新的round更早被淘汰
//
// NOTE: Not goroutine-safe. VoteStorage负责加锁
type BufferedCleanupStrategy struct {
	maxSize  int
	minRound types.Round
	retained deque.Deque
}

var _ CleanupStrategy = (*BufferedCleanupStrategy)(nil)

// NewBufferedCleanupStrategy 用已有的round初始化FIFO，超出maxSize的最旧的round被直接丢弃
// maxSize小于1时panic
func NewBufferedCleanupStrategy(
	maxSize int,
	minRound types.Round,
	existing []types.Round,
) *BufferedCleanupStrategy {
	if maxSize < 1 {
		panic(fmt.Sprintf("cleanup strategy max size must be positive, got %d", maxSize))
	}

	cs := &BufferedCleanupStrategy{
		maxSize:  maxSize,
		minRound: minRound,
	}
	for _, r := range existing {
		if cs.retained.Len() >= maxSize {
			cs.retained.PopFront()
		}
		cs.retained.PushBack(r)
	}
	return cs
}

func (cs *BufferedCleanupStrategy) Finalize(round types.Round) []types.Round {
	var removed []types.Round
	if cs.retained.Len() >= cs.maxSize {
		if v, ok := cs.retained.PopFront(); ok {
			removed = []types.Round{v.(types.Round)}
		}
	}
	cs.retained.PushBack(round)
	cs.minRound = types.MaxRound(cs.minRound, round)

	return removed
}

func (cs *BufferedCleanupStrategy) ShouldCreateRound(round types.Round) bool {
	return round.Greater(cs.minRound)
}

// MinRound 当前水位线
func (cs *BufferedCleanupStrategy) MinRound() types.Round {
	return cs.minRound
}

// Len 当前FIFO中的round数
func (cs *BufferedCleanupStrategy) Len() int {
	return cs.retained.Len()
}

// Retained 按进入顺序返回FIFO中的round
func (cs *BufferedCleanupStrategy) Retained() []types.Round {
	rounds := make([]types.Round, 0, cs.retained.Len())
	for i := 0; i < cs.retained.Len(); i++ {
		v, _ := cs.retained.PopFront()
		rounds = append(rounds, v.(types.Round))
		cs.retained.PushBack(v)
	}
	return rounds
}
