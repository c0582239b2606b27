package mempool

import "errors"

var (
	// ErrEmptyProposal is returned by a ProposalFactory when empty proposals are not allowed
	ErrEmptyProposal = errors.New("proposal has no transactions")
)
