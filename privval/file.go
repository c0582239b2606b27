package privval

import (
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmos "github.com/tendermint/tendermint/libs/os"
	"github.com/tendermint/tendermint/libs/tempfile"

	"ledgercore/types"
)

//-------------------------------------------------------------------------------

// FilePVKey stores the immutable part of the node key.
type FilePVKey struct {
	Address types.Address  `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	PrivKey crypto.PrivKey `json:"priv_key"`

	filePath string
}

// Save persists the FilePVKey to its filePath.
func (pvKey FilePVKey) Save() error {
	outFile := pvKey.filePath
	if outFile == "" {
		return errors.New("cannot save node key: filePath not set")
	}

	jsonBytes, err := tmjson.MarshalIndent(pvKey, "", "  ")
	if err != nil {
		return err
	}
	return tempfile.WriteFileAtomic(outFile, jsonBytes, 0600)
}

//-------------------------------------------------------------------------------

// FilePV 保存在磁盘上的节点密钥，节点用它标识自己并对投票签名
// NOTE: the directory containing pv.Key.filePath must already exist.
type FilePV struct {
	Key FilePVKey
}

// NewFilePV generates a new node key from the given key and path.
func NewFilePV(privKey crypto.PrivKey, keyFilePath string) *FilePV {
	return &FilePV{
		Key: FilePVKey{
			Address:  types.GetAddress(privKey.PubKey()),
			PubKey:   privKey.PubKey(),
			PrivKey:  privKey,
			filePath: keyFilePath,
		},
	}
}

// GenFilePV generates a new node key with randomly generated private key
// and sets the filePath, but does not call Save().
func GenFilePV(keyFilePath string) *FilePV {
	return NewFilePV(ed25519.GenPrivKey(), keyFilePath)
}

// LoadFilePV loads a FilePV from keyFilePath.
func LoadFilePV(keyFilePath string) (*FilePV, error) {
	keyJSONBytes, err := ioutil.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := FilePVKey{}
	if err := tmjson.Unmarshal(keyJSONBytes, &pvKey); err != nil {
		return nil, errors.Wrapf(err, "error reading node key from %v", keyFilePath)
	}
	if pvKey.PrivKey == nil {
		return nil, errors.Errorf("node key file %v has no private key", keyFilePath)
	}

	// overwrite pubkey and address for convenience
	pvKey.PubKey = pvKey.PrivKey.PubKey()
	pvKey.Address = types.GetAddress(pvKey.PubKey)
	pvKey.filePath = keyFilePath

	return &FilePV{
		Key: pvKey,
	}, nil
}

// LoadOrGenFilePV loads a FilePV from the given filePath
// or else generates a new one and saves it to the filePath.
func LoadOrGenFilePV(keyFilePath string) (*FilePV, error) {
	if tmos.FileExists(keyFilePath) {
		return LoadFilePV(keyFilePath)
	}
	pv := GenFilePV(keyFilePath)
	if err := pv.Save(); err != nil {
		return nil, err
	}
	return pv, nil
}

// GetAddress returns the address of the node.
func (pv *FilePV) GetAddress() types.Address {
	return pv.Key.Address
}

// GetPubKey returns the public key of the node.
func (pv *FilePV) GetPubKey() crypto.PubKey {
	return pv.Key.PubKey
}

// Peer 以本节点的公钥构造PeerSet的成员
func (pv *FilePV) Peer() *types.Peer {
	return types.NewPeer(pv.Key.PubKey)
}

// SignVote signs a canonical representation of the vote, along with the
// chainID, and sets the signer.
func (pv *FilePV) SignVote(chainID string, vote *types.Vote) error {
	sig, err := pv.Key.PrivKey.Sign(types.VoteSignBytes(chainID, vote))
	if err != nil {
		return fmt.Errorf("error signing vote: %v", err)
	}
	vote.Signer = pv.GetAddress()
	vote.Signature = sig
	return nil
}

// Save persists the FilePV to disk.
func (pv *FilePV) Save() error {
	return pv.Key.Save()
}

// String returns a string representation of the FilePV.
func (pv *FilePV) String() string {
	return fmt.Sprintf("NodeKey{%v}", pv.GetAddress())
}

// VerifyVote 检查投票的签名是否来自pubKey
func VerifyVote(chainID string, vote *types.Vote, pubKey crypto.PubKey) bool {
	if !types.GetAddress(pubKey).Equal(vote.Signer) {
		return false
	}
	return pubKey.VerifySignature(types.VoteSignBytes(chainID, vote), vote.Signature)
}
