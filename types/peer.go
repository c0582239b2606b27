// fork from github.com/tendermint/tendermint/types/validator.go
package types

import (
	"errors"
	"fmt"

	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
)

// Peer 参与投票的节点
type Peer struct {
	Address Address       `json:"address"`
	PubKey  crypto.PubKey `json:"pub_key"`
}

// NewPeer returns a new peer with the given pubkey.
func NewPeer(pubKey crypto.PubKey) *Peer {
	return &Peer{
		Address: GetAddress(pubKey),
		PubKey:  pubKey,
	}
}

// ValidateBasic performs basic validation.
func (p *Peer) ValidateBasic() error {
	if p == nil {
		return errors.New("nil peer")
	}
	if p.PubKey == nil {
		return errors.New("peer does not have a public key")
	}

	if len(p.Address) != crypto.AddressSize {
		return fmt.Errorf("peer address is the wrong size: %v", p.Address)
	}

	return nil
}

// Creates a new copy of the peer.
// Panics if the peer is nil.
func (p *Peer) Copy() *Peer {
	pCopy := *p
	return &pCopy
}

func (p *Peer) String() string {
	if p == nil {
		return "nil-Peer"
	}
	return fmt.Sprintf("Peer{%v %v}", p.Address, p.PubKey)
}

// Bytes computes the unique encoding of a peer. It excludes address
// as its redundant with the pubkey.
func (p *Peer) Bytes() []byte {
	return p.PubKey.Bytes()
}

//----------------------------------------
// RandPeer

// RandPeer returns a randomized peer and its private key, useful for testing.
// UNSTABLE
func RandPeer() (*Peer, crypto.PrivKey) {
	privKey := ed25519.GenPrivKey()
	return NewPeer(privKey.PubKey()), privKey
}
