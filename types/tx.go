package types

import (
	"github.com/tendermint/tendermint/crypto/merkle"
	"github.com/tendermint/tendermint/crypto/tmhash"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// Tx 对core是不透明的字节序列
type Tx []byte

func (tx Tx) Hash() []byte {
	return tmhash.Sum(tx)
}

func (tx Tx) Key() string {
	return string(tx.Hash())
}

func (tx Tx) String() string {
	return tmbytes.HexBytes(tx.Hash()).String()
}

// ===== tx array =====
type Txs []Tx

func (txs Txs) Append(tx Txs) Txs {
	return append(txs, tx...)
}

// ComputeSize 所有交易的字节数之和
func (txs Txs) ComputeSize() int64 {
	var dataSize int64

	for _, tx := range txs {
		dataSize += int64(len(tx))
	}

	return dataSize
}

// 返回交易形成的merkle tree的根value
func (txs Txs) Hash() []byte {
	txBzs := make([][]byte, len(txs))
	for i := 0; i < len(txs); i++ {
		txBzs[i] = txs[i].Hash()
	}
	return merkle.HashFromByteSlices(txBzs)
}
