package commands

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"
	tmjson "github.com/tendermint/tendermint/libs/json"

	"ledgercore/privval"
	"ledgercore/types"
)

// AddPeerCmd 把其他节点show-peer的输出加入peers文件
var AddPeerCmd = &cobra.Command{
	Use:     "add-peer [peer.json]",
	Aliases: []string{"add_peer"},
	Args:    cobra.ExactArgs(1),
	Short:   "Add the peer printed by show-peer to the peers file",
	PreRun:  deprecateSnakeCase,
	RunE:    addPeer,
}

func addPeer(cmd *cobra.Command, args []string) error {
	bz, err := ioutil.ReadFile(args[0])
	if err != nil {
		return err
	}
	peer := new(types.Peer)
	if err := tmjson.Unmarshal(bz, peer); err != nil {
		return fmt.Errorf("failed to read peer from %s: %w", args[0], err)
	}
	// 以公钥为准
	peer = types.NewPeer(peer.PubKey)
	if err := peer.ValidateBasic(); err != nil {
		return err
	}

	peersFile := config.PeersFile()
	peers, err := privval.LoadPeerSet(peersFile)
	if err != nil {
		return err
	}
	if peers.HasAddress(peer.Address) {
		logger.Info("Peer already exists", "addr", peer.Address)
		return nil
	}

	peers = types.NewPeerSet(append(peers.Peers, peer))
	if err := privval.SavePeerSet(peersFile, peers); err != nil {
		return err
	}
	logger.Info("Added peer", "addr", peer.Address, "peers", peers.Size())
	return nil
}
