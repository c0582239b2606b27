package types

import (
	"fmt"
	"time"

	"github.com/tendermint/tendermint/crypto/merkle"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// Proposal 绑定到某个round的有序交易集合
// 创建之后不可修改，所有字段只能通过访问器读取
type Proposal struct {
	round       Round
	height      uint64
	createdTime time.Time
	txs         Txs

	hash tmbytes.HexBytes
}

func NewProposal(round Round, height uint64, createdTime time.Time, txs Txs) *Proposal {
	p := &Proposal{
		round:       round,
		height:      height,
		createdTime: createdTime,
		txs:         append(Txs(nil), txs...),
	}
	// createdTime不参与hash，不同节点打包相同的交易得到相同的proposal hash
	p.hash = merkle.HashFromByteSlices([][]byte{
		round.Bytes(),
		uint64Bytes(height),
		p.txs.Hash(),
	})
	return p
}

func (p *Proposal) Round() Round {
	return p.round
}

func (p *Proposal) Height() uint64 {
	return p.height
}

func (p *Proposal) CreatedTime() time.Time {
	return p.createdTime
}

// Txs 返回交易列表的拷贝
func (p *Proposal) Txs() Txs {
	return append(Txs(nil), p.txs...)
}

func (p *Proposal) Size() int {
	return len(p.txs)
}

func (p *Proposal) Hash() tmbytes.HexBytes {
	return append(tmbytes.HexBytes(nil), p.hash...)
}

func (p *Proposal) String() string {
	if p == nil {
		return "nil-Proposal"
	}
	return fmt.Sprintf("Proposal{%v height:%d txs:%d %v}", p.round, p.height, len(p.txs), p.hash)
}
