package types

import (
	"fmt"

	"github.com/tendermint/tendermint/crypto/merkle"
	"github.com/tendermint/tendermint/crypto/tmhash"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// VoteHash - 投票所指向的结果，proposal和block的hash都为空时表示reject投票
type VoteHash struct {
	Round        Round            `json:"round"`
	ProposalHash tmbytes.HexBytes `json:"proposal_hash"`
	BlockHash    tmbytes.HexBytes `json:"block_hash"`
}

// IsEmpty 对"空"结果的投票，即对该round投出reject
func (vh VoteHash) IsEmpty() bool {
	return len(vh.ProposalHash) == 0 && len(vh.BlockHash) == 0
}

// Key 统计投票时使用的比较键，同一round内相同的结果有相同的Key
func (vh VoteHash) Key() string {
	return vh.ProposalHash.String() + "/" + vh.BlockHash.String()
}

func (vh VoteHash) Hash() []byte {
	return merkle.HashFromByteSlices([][]byte{
		vh.Round.Bytes(),
		vh.ProposalHash,
		vh.BlockHash,
	})
}

func (vh VoteHash) String() string {
	return fmt.Sprintf("VoteHash{%v %X %X}", vh.Round, []byte(vh.ProposalHash), []byte(vh.BlockHash))
}

// Vote - 某个节点针对某个round的单个投票，一个节点在一个round只有一票有效
// 签名在进入core之前已经验证过，这里只作为不透明的负载保存
type Vote struct {
	Hash      VoteHash         `json:"hash"`
	Signer    Address          `json:"signer"`
	Signature tmbytes.HexBytes `json:"signature"`
}

func NewVote(hash VoteHash, signer Address) *Vote {
	return &Vote{Hash: hash, Signer: signer}
}

// Copy 深拷贝，包括所有的字节切片
func (v *Vote) Copy() *Vote {
	if v == nil {
		return nil
	}
	return &Vote{
		Hash: VoteHash{
			Round:        v.Hash.Round,
			ProposalHash: copyBytes(v.Hash.ProposalHash),
			BlockHash:    copyBytes(v.Hash.BlockHash),
		},
		Signer:    Address(copyBytes(v.Signer)),
		Signature: copyBytes(v.Signature),
	}
}

func copyBytes(bz []byte) []byte {
	if bz == nil {
		return nil
	}
	return append([]byte(nil), bz...)
}

func (v *Vote) Round() Round {
	return v.Hash.Round
}

// ValidateBasic performs basic validation.
func (v *Vote) ValidateBasic() error {
	if v == nil {
		return ErrNilVote
	}
	if len(v.Signer) == 0 {
		return ErrVoteNoSigner
	}
	return nil
}

func (v *Vote) String() string {
	if v == nil {
		return "nil-Vote"
	}
	return fmt.Sprintf("Vote{%v by %v}", v.Hash, v.Signer)
}

// VoteSignBytes 节点对投票签名的内容，chainID避免不同链之间重放
func VoteSignBytes(chainID string, vote *Vote) []byte {
	return tmhash.Sum(append([]byte(chainID), vote.Hash.Hash()...))
}
