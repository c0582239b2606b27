package types

import (
	"encoding/binary"
	"fmt"
)

type (
	BlockRoundType  = uint64
	RejectRoundType = uint32
)

const (
	// 每个block round的第一个reject round
	FirstRejectRound = RejectRoundType(0)

	// reject之后下一轮提案的消费者
	NextRejectRoundConsumer = RejectRoundType(FirstRejectRound + 1)

	// commit之后下一轮提案的消费者
	NextCommitRoundConsumer = FirstRejectRound
)

// CurrentRejectRoundConsumer 当前round收到的batch会在reject_round+2被打包
func CurrentRejectRoundConsumer(r RejectRoundType) RejectRoundType {
	return r + 2
}

// Round 标识一次共识尝试，(block_round, reject_round)按字典序全序
// Round是值类型，可以直接作为map的key
type Round struct {
	BlockRound  BlockRoundType  `json:"block_round"`
	RejectRound RejectRoundType `json:"reject_round"`
}

func NewRound(block BlockRoundType, reject RejectRoundType) Round {
	return Round{BlockRound: block, RejectRound: reject}
}

// Compare returns -1, 0 or 1.
func (r Round) Compare(other Round) int {
	switch {
	case r.BlockRound < other.BlockRound:
		return -1
	case r.BlockRound > other.BlockRound:
		return 1
	case r.RejectRound < other.RejectRound:
		return -1
	case r.RejectRound > other.RejectRound:
		return 1
	default:
		return 0
	}
}

func (r Round) Less(other Round) bool {
	return r.Compare(other) < 0
}

func (r Round) Greater(other Round) bool {
	return r.Compare(other) > 0
}

// IsCommitRound reject_round为0的round紧跟在一次commit之后
func (r Round) IsCommitRound() bool {
	return r.RejectRound == FirstRejectRound
}

// NextReject 当前round被reject后进入的round
func (r Round) NextReject() Round {
	return Round{BlockRound: r.BlockRound, RejectRound: r.RejectRound + 1}
}

// NextCommit 当前round被commit后进入的round
func (r Round) NextCommit() Round {
	return Round{BlockRound: r.BlockRound + 1, RejectRound: FirstRejectRound}
}

// Bytes 用于hash计算的定长编码
func (r Round) Bytes() []byte {
	bz := make([]byte, 12)
	binary.BigEndian.PutUint64(bz[:8], r.BlockRound)
	binary.BigEndian.PutUint32(bz[8:], r.RejectRound)
	return bz
}

func (r Round) String() string {
	return fmt.Sprintf("(%d, %d)", r.BlockRound, r.RejectRound)
}

// MaxRound returns the greater of the two rounds.
func MaxRound(a, b Round) Round {
	if a.Less(b) {
		return b
	}
	return a
}
