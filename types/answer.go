package types

import "fmt"

type AnswerType uint8

const (
	CommitAnswer = AnswerType(1)
	RejectAnswer = AnswerType(2)
)

func (t AnswerType) String() string {
	switch t {
	case CommitAnswer:
		return "Commit"
	case RejectAnswer:
		return "Reject"
	default:
		return "UnkownAnswer"
	}
}

// Answer明确的表示某个round有超过2/3的节点对同一结果投票
// Answer一旦产生不再改变
type Answer struct {
	Type  AnswerType `json:"type"`
	Votes []*Vote    `json:"votes"`
}

func NewCommitAnswer(votes []*Vote) Answer {
	return Answer{Type: CommitAnswer, Votes: votes}
}

func NewRejectAnswer(votes []*Vote) Answer {
	return Answer{Type: RejectAnswer, Votes: votes}
}

// Copy 返回的Answer不与a共享任何投票
func (a Answer) Copy() Answer {
	if a.Votes == nil {
		return Answer{Type: a.Type}
	}
	votes := make([]*Vote, len(a.Votes))
	for i, v := range a.Votes {
		votes[i] = v.Copy()
	}
	return Answer{Type: a.Type, Votes: votes}
}

func (a Answer) IsCommit() bool {
	return a.Type == CommitAnswer
}

// Round 所有投票都属于同一个round
func (a Answer) Round() Round {
	if len(a.Votes) == 0 {
		return Round{}
	}
	return a.Votes[0].Round()
}

// Hash 被支持的结果，reject时为空
func (a Answer) Hash() VoteHash {
	if len(a.Votes) == 0 {
		return VoteHash{}
	}
	return a.Votes[0].Hash
}

func (a Answer) String() string {
	return fmt.Sprintf("%v{%v votes:%d}", a.Type, a.Round(), len(a.Votes))
}
