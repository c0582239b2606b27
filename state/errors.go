package state

import (
	"errors"
	"fmt"
)

var (
	ErrNilProposal  = errors.New("nil proposal")
	ErrBlockExisted = errors.New("block already exists at this height")
)

type (
	ErrInvalidBlock struct {
		Err error
	}

	ErrStaleProposal struct {
		Height     uint64
		LastHeight uint64
	}
)

func (e ErrInvalidBlock) Error() string {
	return fmt.Sprintf("invalid block: %v", e.Err)
}

func (e ErrInvalidBlock) Unwrap() error {
	return e.Err
}

func (e ErrStaleProposal) Error() string {
	return fmt.Sprintf("proposal height %d is not above last block height %d", e.Height, e.LastHeight)
}
