package types

import (
	"errors"
	"time"

	"github.com/tendermint/tendermint/crypto/merkle"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// local blockchain维护的区块的基本单位，由commit的proposal生成
type Block struct {
	Header Header  `json:"header"`
	Data   Data    `json:"data"`
	Commit *Commit `json:"commit"` // 区块能够提交的证据 - 即该round的commit answer中的投票
}

// MakeBlock 由一个已经commit的proposal生成区块
func MakeBlock(chainID string, proposal *Proposal, lastBlockHash []byte, votes []*Vote) *Block {
	b := &Block{
		Header: Header{
			ChainID:       chainID,
			Height:        proposal.Height(),
			Round:         proposal.Round(),
			ProposalTime:  proposal.CreatedTime(),
			LastBlockHash: lastBlockHash,
			ProposalHash:  proposal.Hash(),
		},
		Data:   Data{Txs: proposal.Txs()},
		Commit: &Commit{Round: proposal.Round(), Votes: votes},
	}
	b.fillHeader()
	return b
}

// 检验一个block是否合法 - 这里的合法指的是没有明确的错误
func (b *Block) ValidateBasic() error {
	if len(b.Header.BlockHash) == 0 {
		return errors.New("block had no blockhash")
	}
	if len(b.Header.TxsHash) == 0 {
		return errors.New("block had no txs hash")
	}
	if b.Commit == nil || len(b.Commit.Votes) == 0 {
		return errors.New("block had no commit")
	}
	return nil
}

// 填补各种hash value
func (b *Block) fillHeader() {
	if b.Header.TxsHash == nil {
		b.Header.TxsHash = b.Data.Txs.Hash()
	}
	b.Header.Hash()
}

func (b *Block) Hash() tmbytes.HexBytes {
	if b == nil {
		return nil
	}
	return b.Header.Hash()
}

type Header struct {
	// 基本的区块信息
	ChainID      string    `json:"chain_id"`
	Height       uint64    `json:"height"`
	Round        Round     `json:"round"`
	ProposalTime time.Time `json:"proposal_time"` // proposal产生的时间

	// 数据hash
	LastBlockHash tmbytes.HexBytes `json:"last_block_hash"` // 上一个区块的信息
	TxsHash       tmbytes.HexBytes `json:"txs_hash"`        // transactions
	ProposalHash  tmbytes.HexBytes `json:"proposal_hash"`   // 对应proposal的hash

	BlockHash tmbytes.HexBytes `json:"block_hash"` // 当前区块的hash
}

func (h *Header) Hash() tmbytes.HexBytes {
	if h == nil {
		return nil
	}
	if h.BlockHash == nil {
		h.BlockHash = merkle.HashFromByteSlices([][]byte{
			[]byte(h.ChainID),
			uint64Bytes(h.Height),
			h.Round.Bytes(),
			h.LastBlockHash,
			h.TxsHash,
			h.ProposalHash,
		})
	}
	return h.BlockHash
}

type Data struct {
	Txs Txs `json:"txs"` // transcations
}

// Height 区块高度
func (b *Block) Height() uint64 {
	return b.Header.Height
}

// Txs 区块中的交易
func (b *Block) Txs() Txs {
	return b.Data.Txs
}

// Commit 区块可以提交的证据
type Commit struct {
	Round Round   `json:"round"`
	Votes []*Vote `json:"votes"`
}
