package consensus

import (
	"sync"

	jsoniter "github.com/json-iterator/go"

	"ledgercore/types"
)

func newConsensusMetric() *consensusMetric {
	return &consensusMetric{}
}

type consensusMetric struct {
	mtx sync.RWMutex

	TrackedRounds int `json:"tracked_rounds"`

	CommitNum       int64 `json:"commit_num"`
	RejectNum       int64 `json:"reject_num"`
	DroppedVotesNum int64 `json:"dropped_votes_num"`

	LastAnswerRound types.Round `json:"last_answer_round"`
	LastAnswerType  string      `json:"last_answer_type"`
	LastProcessed   types.Round `json:"last_processed_round"`
}

func (cm *consensusMetric) JSONString() string {
	cm.mtx.RLock()
	defer cm.mtx.RUnlock()
	s, _ := jsoniter.MarshalToString(cm)
	return s
}

func (cm *consensusMetric) MarkTrackedRounds(n int) {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	cm.TrackedRounds = n
}

func (cm *consensusMetric) MarkAnswer(answer types.Answer) {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	if answer.IsCommit() {
		cm.CommitNum++
	} else {
		cm.RejectNum++
	}
	cm.LastAnswerRound = answer.Round()
	cm.LastAnswerType = answer.Type.String()
}

func (cm *consensusMetric) MarkDropped(n int) {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	cm.DroppedVotesNum += int64(n)
}

func (cm *consensusMetric) MarkProcessed(round types.Round) {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	cm.LastProcessed = round
}
