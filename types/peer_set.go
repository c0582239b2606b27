// fork from github.com/tendermint/tendermint/types/validator_set.go
package types

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/tendermint/tendermint/crypto/merkle"
)

// PeerSet represent the set of *Peer voting in the rounds of a chain.
//
// The peers are sorted by address (ascending), so the indices are fixed.
// Membership management happens outside of this package, a PeerSet is
// only a snapshot supplied to the vote registry.
//
// NOTE: Not goroutine-safe.
// NOTE: All get/set to peers should copy the value for safety.
type PeerSet struct {
	// NOTE: persisted via reflect, must be exported.
	Peers []*Peer `json:"peers"`
}

// NewPeerSet initializes a PeerSet by copying over the values from
// `peers`. If peers is nil or empty, the new PeerSet will have an empty
// list of Peers.
func NewPeerSet(peers []*Peer) *PeerSet {
	ps := &PeerSet{}
	ps.Peers = make([]*Peer, 0, len(peers))

	for _, p := range peers {
		ps.Peers = append(ps.Peers, p.Copy())
	}
	sort.Sort(PeersByAddress(ps.Peers))

	return ps
}

func (ps *PeerSet) ValidateBasic() error {
	if ps.IsNilOrEmpty() {
		return ErrEmptyPeerSet
	}

	for idx, p := range ps.Peers {
		if err := p.ValidateBasic(); err != nil {
			return fmt.Errorf("invalid peer #%d: %w", idx, err)
		}
	}

	return nil
}

// IsNilOrEmpty returns true if peer set is nil or empty.
func (ps *PeerSet) IsNilOrEmpty() bool {
	return ps == nil || len(ps.Peers) == 0
}

// Copy each peer into a new PeerSet.
func (ps *PeerSet) Copy() *PeerSet {
	return NewPeerSet(ps.Peers)
}

// HasAddress returns true if address given is in the peer set, false -
// otherwise.
func (ps *PeerSet) HasAddress(address []byte) bool {
	idx, _ := ps.GetByAddress(address)
	return idx >= 0
}

// GetByAddress returns an index of the peer with address and peer
// itself (copy) if found. Otherwise, -1 and nil are returned.
func (ps *PeerSet) GetByAddress(address []byte) (index int32, p *Peer) {
	if ps == nil {
		return -1, nil
	}
	for idx, p := range ps.Peers {
		if bytes.Equal(p.Address, address) {
			return int32(idx), p.Copy()
		}
	}
	return -1, nil
}

// Size returns the length of the peer set.
func (ps *PeerSet) Size() int {
	if ps == nil {
		return 0
	}
	return len(ps.Peers)
}

// PeersInRound 参与某个round投票的节点数，作为vote storage的容量
func (ps *PeerSet) PeersInRound(round Round) uint64 {
	return uint64(ps.Size())
}

// Hash returns the Merkle root hash build using peers (as leaves) in the
// set.
func (ps *PeerSet) Hash() []byte {
	bzs := make([][]byte, len(ps.Peers))
	for i, p := range ps.Peers {
		bzs[i] = p.Bytes()
	}
	return merkle.HashFromByteSlices(bzs)
}

// Iterate will run the given function over the set.
func (ps *PeerSet) Iterate(fn func(index int, p *Peer) bool) {
	for i, p := range ps.Peers {
		stop := fn(i, p.Copy())
		if stop {
			break
		}
	}
}

// String returns a string representation of PeerSet.
func (ps *PeerSet) String() string {
	if ps == nil {
		return "nil-PeerSet"
	}
	var peerStrings []string
	ps.Iterate(func(index int, p *Peer) bool {
		peerStrings = append(peerStrings, p.String())
		return false
	})
	return fmt.Sprintf("PeerSet{%s}", strings.Join(peerStrings, ", "))
}

//----------------------------------------

// PeersByAddress sorts peers by address.
type PeersByAddress []*Peer

func (ps PeersByAddress) Len() int { return len(ps) }

func (ps PeersByAddress) Less(i, j int) bool {
	return bytes.Compare(ps[i].Address, ps[j].Address) == -1
}

func (ps PeersByAddress) Swap(i, j int) {
	ps[i], ps[j] = ps[j], ps[i]
}

// RandPeerSet returns a randomized peer set (size: +numPeers+) together
// with its peers in address order.
//
// EXPOSED FOR TESTING.
func RandPeerSet(numPeers int) (*PeerSet, []*Peer) {
	peers := make([]*Peer, numPeers)
	for i := 0; i < numPeers; i++ {
		peers[i], _ = RandPeer()
	}
	ps := NewPeerSet(peers)
	return ps, ps.Peers
}
