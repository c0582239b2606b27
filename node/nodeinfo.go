package node

import (
	"ledgercore/config"
	"ledgercore/privval"
	"ledgercore/types"
	"ledgercore/version"
)

func makeNodeInfo(
	config *config.Config,
	nodeKey *privval.FilePV,
	peers *types.PeerSet,
) (types.NodeInfo, error) {
	nodeInfo := types.NodeInfo{
		Address:    nodeKey.GetAddress(),
		ChainID:    config.ChainID,
		Moniker:    config.Moniker,
		Version:    version.LCCoreSemVer,
		RPCAddress: config.RPC.ListenAddress,
		IsPeer:     peers.HasAddress(nodeKey.GetAddress()),
	}

	err := nodeInfo.Validate()
	return nodeInfo, err
}
