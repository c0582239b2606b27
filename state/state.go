package state

import (
	"fmt"
	"time"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"

	"ledgercore/types"
)

// MakeGenesisState 还没有任何区块时的状态
func MakeGenesisState(chainID string, initialRound types.Round) State {
	return State{
		ChainID:      chainID,
		InitialRound: initialRound,
	}
}

// 有限确定状态机的一个状态节点
// 每提交一个区块产生一个新的State，旧的State不会被修改
type State struct {
	// 初始设定值 const value
	ChainID      string      `json:"chain_id"`
	InitialRound types.Round `json:"initial_round"`

	// 最后提交的区块的信息
	LastBlockHeight uint64           `json:"last_block_height"`
	LastBlockRound  types.Round      `json:"last_block_round"`
	LastBlockHash   tmbytes.HexBytes `json:"last_block_hash"`
	LastBlockTime   time.Time        `json:"last_block_time"` // 提交的时间 - 物理时间
}

// 返回当前state的拷贝副本，deepcopy
func (state State) Copy() State {
	newState := state
	newState.LastBlockHash = make([]byte, len(state.LastBlockHash))
	copy(newState.LastBlockHash, state.LastBlockHash)
	return newState
}

// IsEmpty 零值State表示还没有从数据库或者genesis加载
func (state State) IsEmpty() bool {
	return state.ChainID == ""
}

// CurrentRound 下一个需要达成共识的round
func (state State) CurrentRound() types.Round {
	if state.LastBlockHeight == 0 {
		return state.InitialRound
	}
	return state.LastBlockRound.NextCommit()
}

func (state State) String() string {
	return fmt.Sprintf("State{%s height:%d round:%v hash:%v}",
		state.ChainID, state.LastBlockHeight, state.LastBlockRound, state.LastBlockHash)
}
