package types

import (
	"fmt"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// TransactionBatch 一组原子的交易，要么整体打包进一个proposal，要么整体留在队列中
type TransactionBatch struct {
	Txs Txs `json:"txs"`
}

func NewTransactionBatch(txs ...Tx) *TransactionBatch {
	return &TransactionBatch{Txs: txs}
}

// Size 交易条数
func (b *TransactionBatch) Size() int {
	return len(b.Txs)
}

// Hash batch的身份，replay cache使用它来查询batch的状态
func (b *TransactionBatch) Hash() tmbytes.HexBytes {
	return b.Txs.Hash()
}

// Key hex形式的batch hash
func (b *TransactionBatch) Key() string {
	return b.Hash().String()
}

func (b *TransactionBatch) ValidateBasic() error {
	if b == nil || len(b.Txs) == 0 {
		return ErrEmptyBatch
	}
	return nil
}

func (b *TransactionBatch) String() string {
	return fmt.Sprintf("Batch{%v size:%d}", b.Hash(), b.Size())
}

// BatchesTxs 按顺序拼接所有batch的交易
func BatchesTxs(batches []*TransactionBatch) Txs {
	var n int
	for _, b := range batches {
		n += b.Size()
	}
	txs := make(Txs, 0, n)
	for _, b := range batches {
		txs = txs.Append(b.Txs)
	}
	return txs
}
