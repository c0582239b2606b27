package types

import "errors"

var (
	ErrNilVote      = errors.New("nil vote")
	ErrVoteNoSigner = errors.New("vote has no signer")
	ErrEmptyBatch   = errors.New("batch has no transactions")
	ErrNilProposal  = errors.New("nil proposal")
	ErrEmptyPeerSet = errors.New("peer set is nil or empty")
)
