package consensus

import (
	"errors"
	"fmt"

	"ledgercore/types"
)

var (
	ErrEmptyVotes       = errors.New("empty vote batch")
	ErrMixedRoundVotes  = errors.New("vote batch spans several rounds")
	ErrConsensusStopped = errors.New("consensus service is not running")
	ErrNoPeers          = errors.New("no peers in round")
)

type ErrNotMember struct {
	Signer types.Address
}

func (e ErrNotMember) Error() string {
	return fmt.Sprintf("vote signer %v is not a peer of this round", e.Signer)
}
