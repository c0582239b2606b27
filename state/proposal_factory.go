package state

import (
	"time"

	"ledgercore/mempool"
	"ledgercore/types"
)

// ProposalFactory 实现mempool.ProposalFactory
// 除了创建时间以外，相同的输入总是得到相同的proposal
type ProposalFactory struct {
	allowEmpty bool
}

var _ mempool.ProposalFactory = (*ProposalFactory)(nil)

func NewProposalFactory(allowEmpty bool) *ProposalFactory {
	return &ProposalFactory{allowEmpty: allowEmpty}
}

func (f *ProposalFactory) BuildProposal(round types.Round, txs types.Txs, height uint64, created time.Time) (*types.Proposal, error) {
	if len(txs) == 0 && !f.allowEmpty {
		return nil, mempool.ErrEmptyProposal
	}
	return types.NewProposal(round, height, created, txs), nil
}
