package node

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"
	rpcserver "github.com/tendermint/tendermint/rpc/jsonrpc/server"
	tmdb "github.com/tendermint/tm-db"

	"ledgercore/config"
	"ledgercore/consensus"
	"ledgercore/libs/metric"
	"ledgercore/mempool"
	"ledgercore/ordering"
	"ledgercore/privval"
	"ledgercore/rpc"
	sm "ledgercore/state"
	"ledgercore/store"
	"ledgercore/types"
)

// DBContext specifies config information for loading a new DB.
type DBContext struct {
	ID     string
	Config *config.Config
}

// DBProvider takes a DBContext and returns an instantiated DB.
type DBProvider func(*DBContext) (tmdb.DB, error)

// DefaultDBProvider returns a database using the DBBackend and DBDir
// specified in the ctx.Config.
func DefaultDBProvider(ctx *DBContext) (tmdb.DB, error) {
	return store.OpenDB(ctx.ID, ctx.Config.DBBackend, ctx.Config.DBDir())
}

// MetricsProvider returns consensus, ordering and mempool Metrics.
type MetricsProvider func(chainID string) (*consensus.Metrics, *ordering.Metrics, *mempool.Metrics)

// DefaultMetricsProvider returns Metrics build using Prometheus client library
// if Prometheus is enabled. Otherwise, it returns no-op Metrics.
func DefaultMetricsProvider(config *config.InstrumentationConfig) MetricsProvider {
	return func(chainID string) (*consensus.Metrics, *ordering.Metrics, *mempool.Metrics) {
		if config.Prometheus {
			return consensus.PrometheusMetrics(config.Namespace, "chain_id", chainID),
				ordering.PrometheusMetrics(config.Namespace, "chain_id", chainID),
				mempool.PrometheusMetrics(config.Namespace, "chain_id", chainID)
		}
		return consensus.NopMetrics(), ordering.NopMetrics(), mempool.NopMetrics()
	}
}

// Provider takes a config and a logger and returns a ready to go Node.
type Provider func(*config.Config, log.Logger) (*Node, error)

// DefaultNewNode returns a ledgercore node with default settings for the
// DBProvider and MetricsProvider. It loads the node key and the peers
// from the paths in the config.
func DefaultNewNode(config *config.Config, logger log.Logger) (*Node, error) {
	nodeKey, err := privval.LoadOrGenFilePV(config.NodeKeyFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load or gen node key %s: %w", config.NodeKeyFile(), err)
	}

	peers, err := privval.LoadPeerSet(config.PeersFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load peers %s: %w", config.PeersFile(), err)
	}

	return NewNode(config,
		nodeKey,
		peers,
		DefaultDBProvider,
		DefaultMetricsProvider(config.Instrumentation),
		logger,
	)
}

// Node is the highest level interface to a full ledgercore node.
// It includes all configuration information and running services.
type Node struct {
	service.BaseService

	// config
	config   *config.Config
	nodeKey  *privval.FilePV
	nodeInfo types.NodeInfo

	// services
	blockStore     *store.KVBlockStore
	stateDB        tmdb.DB
	replayCache    *mempool.PresenceCache
	ordering       *ordering.OnDemandOrderingService
	gate           *ordering.Gate
	consensusState *consensus.ConsensusState
	metricSet      *metric.MetricSet

	rpcListeners  []net.Listener
	prometheusSrv *http.Server
}

// Option sets a parameter for the node.
type Option func(*Node)

// NewNode returns a new, ready to go, ledgercore Node.
func NewNode(config *config.Config,
	nodeKey *privval.FilePV,
	peers *types.PeerSet,
	dbProvider DBProvider,
	metricsProvider MetricsProvider,
	logger log.Logger,
	options ...Option) (*Node, error) {

	if err := config.ValidateBasic(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	blockStoreDB, err := dbProvider(&DBContext{"blockstore", config})
	if err != nil {
		return nil, err
	}
	blockStore, err := store.NewBlockStore(blockStoreDB, logger.With("module", "store"))
	if err != nil {
		return nil, err
	}

	stateDB, err := dbProvider(&DBContext{"state", config})
	if err != nil {
		return nil, err
	}
	stateStore := sm.NewStore(stateDB)
	state, err := stateStore.LoadOrGenesis(sm.MakeGenesisState(config.ChainID, config.Ordering.InitialRound()))
	if err != nil {
		return nil, err
	}
	if state.ChainID != config.ChainID {
		return nil, fmt.Errorf("state chain_id %q does not match config chain_id %q", state.ChainID, config.ChainID)
	}
	logger.Info("Loaded state", "state", state)

	csMetrics, orderingMetrics, memMetrics := metricsProvider(config.ChainID)

	replayCache, err := mempool.NewPresenceCache(blockStore, config.Ordering.ReplayCacheSize)
	if err != nil {
		return nil, err
	}

	// 从state之后的round开始排序
	current := state.CurrentRound()
	orderingConfig := *config.Ordering
	orderingConfig.InitialBlockRound = current.BlockRound
	orderingConfig.InitialRejectRound = current.RejectRound

	orderingService := ordering.NewOnDemandOrderingService(
		&orderingConfig,
		sm.NewProposalFactory(config.Ordering.AllowEmptyProposals),
		ordering.WithLogger(logger.With("module", "ordering")),
		ordering.WithMetrics(orderingMetrics, memMetrics),
		ordering.WithReplayCache(replayCache),
	)

	blockExec := sm.NewBlockExecutor(blockStore, sm.WithReleaser(replayCache))
	blockExec.SetLogger(logger.With("module", "state"))

	consensusState := consensus.NewConsensusState(
		config.Consensus,
		peers,
		consensus.WithMetrics(csMetrics),
		// 已经提交的round及之前的投票不再接受
		consensus.WithMinRound(state.LastBlockRound),
	)
	consensusState.SetLogger(logger.With("module", "consensus"))

	gateLogger := logger.With("module", "gate")
	gate := ordering.NewGate(orderingService, blockExec, state,
		ordering.WithStateStore(stateStore),
		ordering.WithRoundProcessor(consensusState),
		ordering.WithBatchFilter(replayCache),
		ordering.WithGateMetrics(orderingMetrics),
		ordering.WithProposalHandler(func(round types.Round, proposal *types.Proposal, ok bool) {
			if !ok {
				gateLogger.Debug("no local proposal", "round", round)
				return
			}
			gateLogger.Info("local proposal ready", "round", round, "hash", proposal.Hash(), "txs", len(proposal.Txs()))
		}),
	)
	gate.SetLogger(gateLogger)

	for _, event := range []string{consensus.EventCommit, consensus.EventReject} {
		if err := consensusState.AddListener("gate", event, gate.OnAnswer); err != nil {
			return nil, err
		}
	}

	metricSet := metric.NewMetricSet()
	for label, item := range map[string]metric.MetricItem{
		"consensus": consensusState.JSONMetric(),
		"ordering":  orderingService.JSONMetric(),
		"mempool":   orderingService.MempoolMetric(),
	} {
		if err := metricSet.SetMetrics(label, item); err != nil {
			return nil, err
		}
	}

	nodeInfo, err := makeNodeInfo(config, nodeKey, peers)
	if err != nil {
		return nil, err
	}
	if !nodeInfo.IsPeer {
		logger.Info("This node is not a peer", "addr", nodeKey.GetAddress(), "peers", peers.Size())
	}

	node := &Node{
		config:   config,
		nodeKey:  nodeKey,
		nodeInfo: nodeInfo,

		blockStore:     blockStore,
		stateDB:        stateDB,
		replayCache:    replayCache,
		ordering:       orderingService,
		gate:           gate,
		consensusState: consensusState,
		metricSet:      metricSet,
	}
	node.BaseService = *service.NewBaseService(logger, "Node", node)

	for _, option := range options {
		option(node)
	}

	return node, nil
}

// OnStart starts the Node. It implements service.Service.
func (n *Node) OnStart() error {
	if n.config.Instrumentation.Prometheus &&
		n.config.Instrumentation.PrometheusListenAddr != "" {
		n.prometheusSrv = n.startPrometheusServer(n.config.Instrumentation.PrometheusListenAddr)
	}

	if err := n.consensusState.Start(); err != nil {
		return err
	}

	if n.config.RPC.ListenAddress != "" {
		listeners, err := n.startRPC()
		if err != nil {
			return err
		}
		n.rpcListeners = listeners
	}

	n.Logger.Info("Node started", "nodeInfo", n.nodeInfo, "round", n.gate.CurrentRound())
	return nil
}

// OnStop stops the Node. It implements service.Service.
func (n *Node) OnStop() {
	n.BaseService.OnStop()

	n.Logger.Info("Stopping Node")

	for _, l := range n.rpcListeners {
		n.Logger.Info("Closing rpc listener", "listener", l)
		if err := l.Close(); err != nil {
			n.Logger.Error("Error closing listener", "listener", l, "err", err)
		}
	}

	if err := n.consensusState.Stop(); err != nil {
		n.Logger.Error("Error stopping consensus", "err", err)
	}

	if n.prometheusSrv != nil {
		if err := n.prometheusSrv.Close(); err != nil {
			// Error from closing listeners, or context timeout:
			n.Logger.Error("Prometheus HTTP server Shutdown", "err", err)
		}
	}

	if err := n.blockStore.Close(); err != nil {
		n.Logger.Error("Error closing blockstore", "err", err)
	}
	if err := n.stateDB.Close(); err != nil {
		n.Logger.Error("Error closing state db", "err", err)
	}
}

// ConfigureRPC makes sure RPC has all the objects it needs to operate.
func (n *Node) ConfigureRPC() {
	rpc.SetEnvironment(&rpc.Environment{
		Ordering:   n.ordering,
		Gate:       n.gate,
		Consensus:  n.consensusState,
		BlockStore: n.blockStore,
		MetricSet:  n.metricSet,
		NodeInfo:   n.nodeInfo,
		Logger:     n.Logger.With("module", "rpc"),
	})
}

func (n *Node) startRPC() ([]net.Listener, error) {
	n.ConfigureRPC()

	listenAddrs := splitAndTrimEmpty(n.config.RPC.ListenAddress, ",", " ")

	config := rpcserver.DefaultConfig()
	config.MaxBodyBytes = n.config.RPC.MaxBodyBytes
	config.MaxHeaderBytes = n.config.RPC.MaxHeaderBytes
	config.MaxOpenConnections = n.config.RPC.MaxOpenConnections

	listeners := make([]net.Listener, len(listenAddrs))
	for i, listenAddr := range listenAddrs {
		mux := http.NewServeMux()
		rpcLogger := n.Logger.With("module", "rpc-server")
		wmLogger := rpcLogger.With("protocol", "websocket")
		wm := rpcserver.NewWebsocketManager(rpc.Routes,
			rpcserver.ReadLimit(config.MaxBodyBytes),
		)
		wm.SetLogger(wmLogger)
		mux.HandleFunc("/websocket", wm.WebsocketHandler)
		rpcserver.RegisterRPCFuncs(mux, rpc.Routes, rpcLogger)
		listener, err := rpcserver.Listen(
			listenAddr,
			config,
		)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := rpcserver.Serve(
				listener,
				mux,
				rpcLogger,
				config,
			); err != nil {
				n.Logger.Error("Error serving server", "err", err)
			}
		}()

		listeners[i] = listener
	}

	return listeners, nil
}

// startPrometheusServer starts a Prometheus HTTP server, listening for metrics
// collectors on addr.
func (n *Node) startPrometheusServer(addr string) *http.Server {
	srv := &http.Server{
		Addr: addr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: n.config.Instrumentation.MaxOpenConnections},
			),
		),
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			// Error starting or closing listener:
			n.Logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}

// Config returns the Node's config.
func (n *Node) Config() *config.Config {
	return n.config
}

// NodeInfo returns the Node's Info.
func (n *Node) NodeInfo() types.NodeInfo {
	return n.nodeInfo
}

// BlockStore returns the Node's BlockStore.
func (n *Node) BlockStore() store.BlockStore {
	return n.blockStore
}

// OrderingService returns the Node's OnDemandOrderingService.
func (n *Node) OrderingService() *ordering.OnDemandOrderingService {
	return n.ordering
}

// Gate returns the Node's Gate.
func (n *Node) Gate() *ordering.Gate {
	return n.gate
}

// ConsensusState returns the Node's ConsensusState.
func (n *Node) ConsensusState() *consensus.ConsensusState {
	return n.consensusState
}

// MetricSet returns the Node's MetricSet.
func (n *Node) MetricSet() *metric.MetricSet {
	return n.metricSet
}

// RPCListeners returns the addresses the rpc server is listening on.
func (n *Node) RPCListeners() []string {
	addrs := make([]string, len(n.rpcListeners))
	for i, l := range n.rpcListeners {
		addrs[i] = l.Addr().String()
	}
	return addrs
}

// splitAndTrimEmpty slices s into all subslices separated by sep and returns a
// slice of the string s with all leading and trailing Unicode code points
// contained in cutset removed. If sep is empty, SplitAndTrim splits after each
// UTF-8 sequence. First part is equivalent to strings.SplitN with a count of
// -1.  also filter out empty strings, only return non-empty strings.
func splitAndTrimEmpty(s, sep, cutset string) []string {
	if s == "" {
		return []string{}
	}

	spl := strings.Split(s, sep)
	nonEmptyStrings := make([]string, 0, len(spl))
	for i := 0; i < len(spl); i++ {
		element := strings.Trim(spl[i], cutset)
		if element != "" {
			nonEmptyStrings = append(nonEmptyStrings, element)
		}
	}
	return nonEmptyStrings
}
