package privval

import (
	"io/ioutil"

	"github.com/pkg/errors"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/libs/tempfile"

	"ledgercore/types"
)

// LoadPeerSet 读取peers文件，文件中的节点必须都是合法的
func LoadPeerSet(peersFilePath string) (*types.PeerSet, error) {
	bz, err := ioutil.ReadFile(peersFilePath)
	if err != nil {
		return nil, err
	}
	var ps types.PeerSet
	if err := tmjson.Unmarshal(bz, &ps); err != nil {
		return nil, errors.Wrapf(err, "error reading peers from %v", peersFilePath)
	}

	peers := types.NewPeerSet(ps.Peers)
	if err := peers.ValidateBasic(); err != nil {
		return nil, errors.Wrapf(err, "invalid peers file %v", peersFilePath)
	}
	return peers, nil
}

// SavePeerSet 原子地写入peers文件
func SavePeerSet(peersFilePath string, peers *types.PeerSet) error {
	bz, err := tmjson.MarshalIndent(peers, "", "  ")
	if err != nil {
		return err
	}
	return tempfile.WriteFileAtomic(peersFilePath, bz, 0644)
}
