package types

import (
	"bytes"

	"github.com/tendermint/tendermint/crypto"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// Address 节点的身份标识，由公钥推导
type Address crypto.Address

func GetAddress(key crypto.PubKey) Address {
	return Address(key.Address())
}

func (addr Address) Equal(other Address) bool {
	if addr == nil || other == nil {
		return false
	}
	return bytes.Equal(addr, other)
}

// Key 作为map key使用
func (addr Address) Key() string {
	return string(addr)
}

func (addr Address) String() string {
	return tmbytes.HexBytes(addr).String()
}
