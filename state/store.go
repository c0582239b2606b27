package state

import (
	"github.com/pkg/errors"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmdb "github.com/tendermint/tm-db"
)

var stateKey = []byte("stateKey")

// 数据持久化接口
type Store interface {
	// Load 读取最后保存的state，不存在时返回空State
	Load() (State, error)

	// LoadOrGenesis 不存在时返回genesis
	LoadOrGenesis(genesis State) (State, error)

	Save(State) error
}

type dbStore struct {
	db tmdb.DB
}

var _ Store = dbStore{}

func NewStore(db tmdb.DB) Store {
	return dbStore{db}
}

func (store dbStore) Load() (State, error) {
	buf, err := store.db.Get(stateKey)
	if err != nil {
		return State{}, errors.Wrap(err, "load state")
	}
	if len(buf) == 0 {
		return State{}, nil
	}

	var state State
	if err := tmjson.Unmarshal(buf, &state); err != nil {
		return State{}, errors.Wrap(err, "decode state")
	}
	return state, nil
}

func (store dbStore) LoadOrGenesis(genesis State) (State, error) {
	state, err := store.Load()
	if err != nil {
		return State{}, err
	}
	if state.IsEmpty() {
		return genesis, nil
	}
	return state, nil
}

func (store dbStore) Save(state State) error {
	buf, err := tmjson.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	return store.db.SetSync(stateKey, buf)
}
