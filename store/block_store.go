package store

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/libs/log"
	tmsync "github.com/tendermint/tendermint/libs/sync"
	tmdb "github.com/tendermint/tm-db"
	"github.com/tendermint/tm-db/memdb"

	"ledgercore/types"
)

var (
	prefixBlock = []byte("B:")
	prefixTx    = []byte("T:")
)

// BlockStore 只能追加的区块存储
type BlockStore interface {
	// Insert 追加区块，高度已经存在或者不大于最后的高度时返回false
	Insert(block *types.Block) (bool, error)

	// Fetch 按高度读取区块，不存在时返回(nil, nil)
	Fetch(height uint64) (*types.Block, error)

	// LastHeight 最后一个区块的高度，没有区块时返回0
	LastHeight() uint64

	// Size 区块数
	Size() int

	// Visit 按高度顺序遍历所有区块
	Visit(fn func(*types.Block) error) error

	// DropAll 删除所有区块
	DropAll() error

	// HasTx 交易是否已经提交
	HasTx(hash []byte) bool
}

// KVBlockStore 在tm-db上实现BlockStore
// key的格式:
// B:{height big endian} -> block json
// T:{tx hash} -> height
type KVBlockStore struct {
	mtx tmsync.RWMutex
	db  tmdb.DB

	lastHeight uint64
	size       int

	logger log.Logger
}

var _ BlockStore = (*KVBlockStore)(nil)

// OpenBlockStore 打开name对应的数据库
func OpenBlockStore(name, backend, dir string, logger log.Logger) (*KVBlockStore, error) {
	db, err := OpenDB(name, backend, dir)
	if err != nil {
		return nil, err
	}
	return NewBlockStore(db, logger)
}

// NewMemBlockStore 基于内存的BlockStore，测试使用
func NewMemBlockStore() *KVBlockStore {
	bs, err := NewBlockStore(memdb.NewDB(), log.NewNopLogger())
	if err != nil {
		panic(err)
	}
	return bs
}

// NewBlockStore 从已有的数据库中恢复最后的高度
func NewBlockStore(db tmdb.DB, logger log.Logger) (*KVBlockStore, error) {
	bs := &KVBlockStore{db: db, logger: logger}

	it, err := db.ReverseIterator(prefixBlock, prefixEnd(prefixBlock))
	if err != nil {
		return nil, errors.Wrap(err, "iterate blocks")
	}
	defer it.Close()
	if it.Valid() {
		bs.lastHeight = heightFromKey(it.Key())
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate blocks")
	}

	if err := bs.Visit(func(*types.Block) error { bs.size++; return nil }); err != nil {
		return nil, err
	}
	return bs, nil
}

func (bs *KVBlockStore) SetLogger(logger log.Logger) {
	bs.logger = logger
}

func (bs *KVBlockStore) Insert(block *types.Block) (bool, error) {
	if block == nil {
		return false, errors.New("nil block")
	}

	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	if bs.size > 0 && block.Height() <= bs.lastHeight {
		bs.logger.Debug("skip block insert", "height", block.Height(), "last", bs.lastHeight)
		return false, nil
	}

	bz, err := tmjson.Marshal(block)
	if err != nil {
		return false, errors.Wrap(err, "marshal block")
	}

	batch := bs.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(blockKey(block.Height()), bz); err != nil {
		return false, err
	}
	height := encodeHeight(block.Height())
	for _, tx := range block.Data.Txs {
		if err := batch.Set(txKey(tx.Hash()), height); err != nil {
			return false, err
		}
	}
	if err := batch.WriteSync(); err != nil {
		return false, errors.Wrapf(err, "write block %d", block.Height())
	}

	bs.lastHeight = block.Height()
	bs.size++
	bs.logger.Debug("inserted block", "height", block.Height(), "hash", block.Hash(), "txs", len(block.Data.Txs))
	return true, nil
}

func (bs *KVBlockStore) Fetch(height uint64) (*types.Block, error) {
	bz, err := bs.db.Get(blockKey(height))
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, nil
	}

	block := new(types.Block)
	if err := tmjson.Unmarshal(bz, block); err != nil {
		return nil, errors.Wrapf(err, "unmarshal block %d", height)
	}
	return block, nil
}

func (bs *KVBlockStore) LastHeight() uint64 {
	bs.mtx.RLock()
	defer bs.mtx.RUnlock()
	return bs.lastHeight
}

func (bs *KVBlockStore) Size() int {
	bs.mtx.RLock()
	defer bs.mtx.RUnlock()
	return bs.size
}

func (bs *KVBlockStore) Visit(fn func(*types.Block) error) error {
	it, err := bs.db.Iterator(prefixBlock, prefixEnd(prefixBlock))
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		block := new(types.Block)
		if err := tmjson.Unmarshal(it.Value(), block); err != nil {
			return errors.Wrapf(err, "unmarshal block %d", heightFromKey(it.Key()))
		}
		if err := fn(block); err != nil {
			return err
		}
	}
	return it.Error()
}

func (bs *KVBlockStore) DropAll() error {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	var keys [][]byte
	for _, prefix := range [][]byte{prefixBlock, prefixTx} {
		it, err := bs.db.Iterator(prefix, prefixEnd(prefix))
		if err != nil {
			return err
		}
		for ; it.Valid(); it.Next() {
			keys = append(keys, append([]byte(nil), it.Key()...))
		}
		err = it.Error()
		it.Close()
		if err != nil {
			return err
		}
	}

	batch := bs.db.NewBatch()
	defer batch.Close()
	for _, k := range keys {
		if err := batch.Delete(k); err != nil {
			return err
		}
	}
	if err := batch.WriteSync(); err != nil {
		return errors.Wrap(err, "drop blocks")
	}

	bs.lastHeight = 0
	bs.size = 0
	bs.logger.Info("dropped all blocks", "keys", len(keys))
	return nil
}

func (bs *KVBlockStore) HasTx(hash []byte) bool {
	ok, err := bs.db.Has(txKey(hash))
	if err != nil {
		bs.logger.Error("query tx index failed", "err", err)
		return false
	}
	return ok
}

// Close 关闭底层数据库
func (bs *KVBlockStore) Close() error {
	return bs.db.Close()
}

func (bs *KVBlockStore) String() string {
	return fmt.Sprintf("BlockStore{last:%d size:%d}", bs.LastHeight(), bs.Size())
}

//-----------------------------------------------------------------------------

func encodeHeight(height uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, height)
	return bz
}

func blockKey(height uint64) []byte {
	return append(append([]byte(nil), prefixBlock...), encodeHeight(height)...)
}

func heightFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(prefixBlock):])
}

func txKey(hash []byte) []byte {
	return append(append([]byte(nil), prefixTx...), hash...)
}

// prefixEnd 返回大于所有以prefix开头的key的最小key
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
