package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/libs/log"
	tmos "github.com/tendermint/tendermint/libs/os"
)

var (
	endpoint    string
	connections int
	rate        int
	batchSize   int
	txSize      int
	duration    int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "tm-bench",
	Short: "Send transaction batches to a ledgercore node over websocket",
	Example: `tm-bench --endpoint localhost:26657 -T 10 -r 100 -b 10 -c 2
sends 100 batches of 10 transactions per second on each of the 2 connections for 10 seconds`,
	RunE: runBench,
}

func init() {
	rootCmd.Flags().StringVar(&endpoint, "endpoint", "localhost:26657", "host:port of the node rpc")
	rootCmd.Flags().IntVarP(&connections, "connections", "c", 1, "Connections to open to the node")
	rootCmd.Flags().IntVarP(&rate, "rate", "r", 100, "Batches per second to send on a connection")
	rootCmd.Flags().IntVarP(&batchSize, "batch-size", "b", 10, "Transactions per batch")
	rootCmd.Flags().IntVarP(&txSize, "size", "s", 250, "The size of a transaction in bytes, must be greater than or equal to 16")
	rootCmd.Flags().IntVarP(&duration, "duration", "T", 10, "Exit after the specified amount of time in seconds")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func runBench(cmd *cobra.Command, args []string) error {
	logger := log.NewNopLogger()
	if verbose {
		logger = log.NewTMLogger(log.NewSyncWriter(os.Stdout)).With("module", "tm-bench")
	}

	if connections < 1 || rate < 1 || batchSize < 1 || duration < 1 {
		return fmt.Errorf("connections, rate, batch-size and duration must be positive")
	}
	if txSize < 16 {
		return fmt.Errorf("the size of a transaction must be greater than or equal to 16")
	}

	t := newTransacter(endpoint, connections, rate, batchSize, txSize)
	t.SetLogger(logger)
	if err := t.Start(); err != nil {
		return err
	}

	// Stop upon receiving SIGTERM or CTRL-C.
	tmos.TrapSignal(logger, func() {
		t.Stop()
	})

	time.Sleep(time.Duration(duration) * time.Second)
	t.Stop()

	batches, txs, responses, rpcErrors := t.Stats()
	fmt.Printf("sent %d batches (%d txs) in %ds, %d responses, %d errors\n",
		batches, txs, duration, responses, rpcErrors)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
