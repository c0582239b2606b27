package types

import (
	"ledgercore/types"
)

// ProposalStorage 收集一个round的投票
// 第一个得到quorum的结果被冻结为answer，之后的insert不再统计投票，直接返回该answer
//
// NOTE: Not goroutine-safe. VoteStorage负责加锁
type ProposalStorage struct {
	round        types.Round
	peersInRound uint64
	checker      SupermajorityChecker

	signers map[string]struct{}      // 已投票的节点，每个节点只有第一票有效
	votes   map[string][]*types.Vote // 结果 -> 支持该结果的投票

	answer *types.Answer // 只写一次
}

func NewProposalStorage(round types.Round, peersInRound uint64, checker SupermajorityChecker) *ProposalStorage {
	return &ProposalStorage{
		round:        round,
		peersInRound: peersInRound,
		checker:      checker,
		signers:      make(map[string]struct{}),
		votes:        make(map[string][]*types.Vote),
	}
}

// Insert 统计投票，返回(answer, true)表示该round已经有结果
func (ps *ProposalStorage) Insert(votes []*types.Vote) (types.Answer, bool) {
	for _, vote := range votes {
		if ps.answer != nil {
			break
		}
		ps.insert(vote)
	}
	return ps.State()
}

func (ps *ProposalStorage) insert(vote *types.Vote) {
	if vote == nil || vote.Round() != ps.round {
		return
	}
	signer := vote.Signer.Key()
	if _, ok := ps.signers[signer]; ok {
		return
	}
	if uint64(len(ps.signers)) >= ps.peersInRound {
		return
	}
	ps.signers[signer] = struct{}{}

	key := vote.Hash.Key()
	supporters := append(ps.votes[key], vote)
	ps.votes[key] = supporters

	if !ps.checker.HasSupermajority(uint64(len(supporters)), ps.peersInRound) {
		return
	}

	var answer types.Answer
	if vote.Hash.IsEmpty() {
		answer = types.NewRejectAnswer(supporters)
	} else {
		answer = types.NewCommitAnswer(supporters)
	}
	answer = answer.Copy()
	ps.answer = &answer
}

// State 返回冻结的answer的拷贝
func (ps *ProposalStorage) State() (types.Answer, bool) {
	if ps.answer == nil {
		return types.Answer{}, false
	}
	return ps.answer.Copy(), true
}

func (ps *ProposalStorage) Key() types.Round {
	return ps.round
}

// VotesCount 已经统计的投票数
func (ps *ProposalStorage) VotesCount() int {
	return len(ps.signers)
}
