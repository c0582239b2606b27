package ordering

import (
	"sort"

	"ledgercore/types"
)

// orderingMetric 通过rpc暴露的ordering状态，没有proposal时大小统计为-1
type orderingMetric struct {
	ProposalsNum int           `json:"proposals_num"`
	Rounds       []types.Round `json:"proposal_rounds"`

	MaxSize    float64 `json:"max_proposal_size"`
	MinSize    float64 `json:"min_proposal_size"`
	AvgSize    float64 `json:"avg_proposal_size"`
	MedianSize float64 `json:"median_proposal_size"`

	QueuedRounds  int `json:"queued_rounds_num"`
	QueuedBatches int `json:"queued_batches_num"`
}

func sortRounds(rounds []types.Round) []types.Round {
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Less(rounds[j]) })
	return rounds
}
