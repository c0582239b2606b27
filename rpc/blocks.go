package rpc

import (
	"fmt"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"

	"ledgercore/libs/utils"
	"ledgercore/types"
)

type ResultBlockchain struct {
	LastHeight uint64        `json:"last_height"`
	Blocks     []ResultBlock `json:"blocks"`
	ResultTxStats
}

type ResultBlock struct {
	Height        uint64           `json:"height"`
	Round         types.Round      `json:"round"`
	LastBlockHash tmbytes.HexBytes `json:"last_blockhash"`
	BlockHash     tmbytes.HexBytes `json:"blockhash"`
	TxNum         int              `json:"tx_num"`
	VoteNum       int              `json:"vote_num"`
}

// 每个区块交易数的统计，没有区块时为-1
type ResultTxStats struct {
	MaxTxs    float64 `json:"max_block_txs"`
	MinTxs    float64 `json:"min_block_txs"`
	MedianTxs float64 `json:"median_block_txs"`
	AvgTxs    float64 `json:"avg_block_txs"`
}

func Blockchain(ctx *rpctypes.Context) (*ResultBlockchain, error) {
	blocks := []ResultBlock{}
	txNums := []float64{}

	err := env.BlockStore.Visit(func(b *types.Block) error {
		votes := 0
		if b.Commit != nil {
			votes = len(b.Commit.Votes)
		}
		blocks = append(blocks, ResultBlock{
			Height:        b.Height(),
			Round:         b.Header.Round,
			LastBlockHash: b.Header.LastBlockHash,
			BlockHash:     b.Hash(),
			TxNum:         len(b.Txs()),
			VoteNum:       votes,
		})
		txNums = append(txNums, float64(len(b.Txs())))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ResultBlockchain{
		LastHeight: env.BlockStore.LastHeight(),
		Blocks:     blocks,
		ResultTxStats: ResultTxStats{
			MaxTxs:    utils.Max(txNums...),
			MinTxs:    utils.Min(txNums...),
			MedianTxs: utils.Median(txNums...),
			AvgTxs:    utils.Avg(txNums...),
		},
	}, nil
}

func Block(ctx *rpctypes.Context, height uint64) (*types.Block, error) {
	b, err := env.BlockStore.Fetch(height)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("no block at height %d", height)
	}
	return b, nil
}
