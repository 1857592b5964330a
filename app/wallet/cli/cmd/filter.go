package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	filterBlocks bool
	pollEvery    time.Duration
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Print new pending transactions or blocks as they arrive",
	RunE:  filterRun,
}

func init() {
	rootCmd.AddCommand(filterCmd)
	filterCmd.Flags().BoolVar(&filterBlocks, "blocks", false, "Follow new blocks instead of pending transactions.")
	filterCmd.Flags().DurationVar(&pollEvery, "poll", time.Second, "Time between polls.")
}

func filterRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	method := "eth_newPendingTransactionFilter"
	if filterBlocks {
		method = "eth_newBlockFilter"
	}

	var id string
	if err := client.CallContext(ctx, &id, method); err != nil {
		return err
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var ok bool
		client.CallContext(ctx, &ok, "eth_uninstallFilter", id)
	}()

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			var hashes []common.Hash
			if err := client.CallContext(ctx, &hashes, "eth_getFilterChanges", id); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			for _, hash := range hashes {
				fmt.Println(hash.Hex())
			}
		}
	}
}
