package store

import (
	"github.com/pkg/errors"
	tmdb "github.com/tendermint/tm-db"
	leveldb "github.com/tendermint/tm-db/goleveldb"
	"github.com/tendermint/tm-db/memdb"
)

// 支持的db_backend
const (
	GoLevelDBBackend = "goleveldb"
	MemDBBackend     = "memdb"
)

// OpenDB 按backend打开dir下名为name的数据库，memdb忽略name和dir
func OpenDB(name, backend, dir string) (tmdb.DB, error) {
	switch backend {
	case GoLevelDBBackend:
		db, err := leveldb.NewDB(name, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s db in %s", backend, dir)
		}
		return db, nil
	case MemDBBackend:
		return memdb.NewDB(), nil
	default:
		return nil, errors.Errorf("unknown db_backend %s", backend)
	}
}
