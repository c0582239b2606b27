package types

import (
	"errors"
	"fmt"
	"strings"
)

const maxMonikerLen = 128

// NodeInfo 节点的基本信息，通过rpc的status返回
type NodeInfo struct {
	Address    Address `json:"address"`
	ChainID    string  `json:"chain_id"`
	Moniker    string  `json:"moniker"`
	Version    string  `json:"version"`
	RPCAddress string  `json:"rpc_address"`

	// 本节点是否在PeerSet中
	IsPeer bool `json:"is_peer"`
}

func (info NodeInfo) Validate() error {
	if len(info.Address) == 0 {
		return errors.New("node address is empty")
	}
	if info.ChainID == "" {
		return errors.New("node chain_id is empty")
	}
	if len(info.Moniker) > maxMonikerLen {
		return fmt.Errorf("moniker is too long, max %d", maxMonikerLen)
	}
	if len(info.Version) > 0 && strings.Trim(info.Version, "\t ") == "" {
		return fmt.Errorf("info.Version must be valid ASCII text without tabs, but got %v", info.Version)
	}
	return nil
}

func (info NodeInfo) String() string {
	return fmt.Sprintf("NodeInfo{%v %s %s}", info.Address, info.ChainID, info.Moniker)
}
