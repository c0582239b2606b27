package types

//-----------------------------------------------------------------------------
// ProposalState enum type

// ProposalState 一个round的answer在本地的处理进度，只能前进不能后退
type ProposalState uint8

// ProposalState
const (
	NotSentNotProcessed = ProposalState(0x00) // 默认状态
	SentNotProcessed    = ProposalState(0x01) // answer已经发给上层
	SentProcessed       = ProposalState(0x02) // 上层已经处理完answer
)

func (s ProposalState) String() string {
	switch s {
	case NotSentNotProcessed:
		return "NotSentNotProcessed"
	case SentNotProcessed:
		return "SentNotProcessed"
	case SentProcessed:
		return "SentProcessed"
	default:
		return "UnkownProposalState"
	}
}

// Next 状态转移表，终态保持不变
func (s ProposalState) Next() ProposalState {
	switch s {
	case NotSentNotProcessed:
		return SentNotProcessed
	case SentNotProcessed:
		return SentProcessed
	default:
		return SentProcessed
	}
}
