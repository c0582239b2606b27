package main

import (
	"encoding/binary"
	"fmt"

	// it is ok to use math/rand here: we do not need a cryptographically secure random
	// number generator here and we can run the tests a bit faster
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
	jsonrpc "github.com/tendermint/tendermint/rpc/jsonrpc/types"

	"ledgercore/types"
)

const (
	sendTimeout = 10 * time.Second
	// see https://github.com/tendermint/tendermint/blob/master/rpc/lib/server/handlers.go
	pingPeriod = (30 * 9 / 10) * time.Second
)

type transacter struct {
	Target      string
	Rate        int
	Connections int
	BatchSize   int
	TxSize      int

	conns       []*websocket.Conn
	connsBroken []bool
	startingWg  sync.WaitGroup
	endingWg    sync.WaitGroup
	stopped     int32

	sentBatches int64
	sentTxs     int64
	responses   int64
	rpcErrors   int64

	logger log.Logger
}

func newTransacter(target string, connections, rate, batchSize, txSize int) *transacter {
	return &transacter{
		Target:      target,
		Rate:        rate,
		Connections: connections,
		BatchSize:   batchSize,
		TxSize:      txSize,
		conns:       make([]*websocket.Conn, connections),
		connsBroken: make([]bool, connections),
		logger:      log.NewNopLogger(),
	}
}

// SetLogger lets you set your own logger
func (t *transacter) SetLogger(l log.Logger) {
	t.logger = l
}

// Start opens N = `t.Connections` connections to the target and creates read
// and write goroutines for each connection.
func (t *transacter) Start() error {
	atomic.StoreInt32(&t.stopped, 0)

	rand.Seed(time.Now().Unix())

	for i := 0; i < t.Connections; i++ {
		c, _, err := connect(t.Target)
		if err != nil {
			return err
		}
		t.conns[i] = c
	}

	t.startingWg.Add(t.Connections)
	t.endingWg.Add(2 * t.Connections)
	for i := 0; i < t.Connections; i++ {
		go t.sendLoop(i)
		go t.receiveLoop(i)
	}

	t.startingWg.Wait()

	return nil
}

// Stop closes the connections.
func (t *transacter) Stop() {
	atomic.StoreInt32(&t.stopped, 1)
	t.endingWg.Wait()
	for _, c := range t.conns {
		c.Close()
	}
}

func (t *transacter) isStopped() bool {
	return atomic.LoadInt32(&t.stopped) == 1
}

// Stats 发送的batch数、交易数、收到的响应数和其中的rpc错误数
func (t *transacter) Stats() (batches, txs, responses, rpcErrors int64) {
	return atomic.LoadInt64(&t.sentBatches),
		atomic.LoadInt64(&t.sentTxs),
		atomic.LoadInt64(&t.responses),
		atomic.LoadInt64(&t.rpcErrors)
}

// receiveLoop reads the broadcast_batch responses from the connection.
func (t *transacter) receiveLoop(connIndex int) {
	c := t.conns[connIndex]
	defer t.endingWg.Done()
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.logger.Error(
					fmt.Sprintf("failed to read response on conn %d", connIndex),
					"err",
					err,
				)
			}
			return
		}
		t.countResponse(msg)
		if t.isStopped() || t.connsBroken[connIndex] {
			return
		}
	}
}

func (t *transacter) countResponse(msg []byte) {
	var resp jsonrpc.RPCResponse
	if err := jsoniter.Unmarshal(msg, &resp); err != nil {
		atomic.AddInt64(&t.rpcErrors, 1)
		return
	}
	atomic.AddInt64(&t.responses, 1)
	if resp.Error != nil {
		atomic.AddInt64(&t.rpcErrors, 1)
		t.logger.Debug("broadcast_batch failed", "err", resp.Error)
	}
}

// sendLoop generates batches at a given rate.
func (t *transacter) sendLoop(connIndex int) {
	started := false
	// Close the starting waitgroup, in the event that this fails to start
	defer func() {
		if !started {
			t.startingWg.Done()
		}
	}()
	c := t.conns[connIndex]

	c.SetPingHandler(func(message string) error {
		err := c.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(sendTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		} else if e, ok := err.(net.Error); ok && e.Temporary() {
			return nil
		}
		return err
	})

	logger := t.logger.With("addr", c.RemoteAddr())

	var batchNumber = 0

	pingsTicker := time.NewTicker(pingPeriod)
	batchesTicker := time.NewTicker(1 * time.Second)
	defer func() {
		pingsTicker.Stop()
		batchesTicker.Stop()
		t.endingWg.Done()
	}()

	for {
		select {
		case <-batchesTicker.C:
			startTime := time.Now()
			endTime := startTime.Add(time.Second)
			numBatchSent := t.Rate
			if !started {
				t.startingWg.Done()
				started = true
			}

			now := time.Now()
			for i := 0; i < t.Rate; i++ {
				txs := generateBatch(connIndex, batchNumber, t.BatchSize, t.TxSize)
				req, err := newBroadcastBatchRequest(connIndex, batchNumber, txs)
				if err != nil {
					logger.Error("failed to encode params", "err", err)
					t.connsBroken[connIndex] = true
					return
				}

				c.SetWriteDeadline(now.Add(sendTimeout))
				err = c.WriteJSON(req)
				if err != nil {
					err = errors.Wrap(err,
						fmt.Sprintf("batch send failed on connection #%d", connIndex))
					t.connsBroken[connIndex] = true
					logger.Error(err.Error())
					return
				}
				atomic.AddInt64(&t.sentBatches, 1)
				atomic.AddInt64(&t.sentTxs, int64(len(txs)))

				// cache the time.Now() reads to save time.
				if i%5 == 0 {
					now = time.Now()
					if now.After(endTime) {
						// Plus one accounts for sending this batch
						numBatchSent = i + 1
						break
					}
				}

				batchNumber++
			}

			timeToSend := time.Since(startTime)
			logger.Info(fmt.Sprintf("sent %d batches", numBatchSent), "took", timeToSend)
			if timeToSend < 1*time.Second {
				sleepTime := time.Second - timeToSend
				logger.Debug(fmt.Sprintf("connection #%d is sleeping for %f seconds", connIndex, sleepTime.Seconds()))
				time.Sleep(sleepTime)
			}

		case <-pingsTicker.C:
			// go-rpc server closes the connection in the absence of pings
			c.SetWriteDeadline(time.Now().Add(sendTimeout))
			if err := c.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				err = errors.Wrap(err,
					fmt.Sprintf("failed to write ping message on conn #%d", connIndex))
				logger.Error(err.Error())
				t.connsBroken[connIndex] = true
			}
		}

		if t.isStopped() {
			// To cleanly close a connection, a client should send a close
			// frame and wait for the server to close the connection.
			c.SetWriteDeadline(time.Now().Add(sendTimeout))
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				err = errors.Wrap(err,
					fmt.Sprintf("failed to write close message on conn #%d", connIndex))
				logger.Error(err.Error())
				t.connsBroken[connIndex] = true
			}

			return
		}
	}
}

func connect(host string) (*websocket.Conn, *http.Response, error) {
	u := url.URL{Scheme: "ws", Host: host, Path: "/websocket"}
	return websocket.DefaultDialer.Dial(u.String(), nil)
}

func newBroadcastBatchRequest(connIndex, batchNumber int, txs []types.Tx) (jsonrpc.RPCRequest, error) {
	paramsJSON, err := jsoniter.Marshal(map[string]interface{}{"txs": txs})
	if err != nil {
		return jsonrpc.RPCRequest{}, err
	}
	return jsonrpc.RPCRequest{
		JSONRPC: "2.0",
		ID:      jsonrpc.JSONRPCStringID(fmt.Sprintf("tm-bench-%d-%d", connIndex, batchNumber)),
		Method:  "broadcast_batch",
		Params:  paramsJSON,
	}, nil
}

// generateBatch 生成batchSize个txSize字节的交易
// 前16个字节是连接编号、batch编号和交易编号，保证交易互不相同
func generateBatch(connIndex, batchNumber, batchSize, txSize int) []types.Tx {
	if txSize < 16 {
		txSize = 16
	}
	txs := make([]types.Tx, batchSize)
	for i := range txs {
		tx := make([]byte, txSize)
		binary.BigEndian.PutUint32(tx[0:4], uint32(connIndex))
		binary.BigEndian.PutUint64(tx[4:12], uint64(batchNumber))
		binary.BigEndian.PutUint32(tx[12:16], uint32(i))
		rand.Read(tx[16:]) // nolint: gosec
		txs[i] = tx
	}
	return txs
}
