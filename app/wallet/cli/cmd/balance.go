package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var balanceTag string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceTag, "block", "b", "pending", "Block to read the balance from: pending, latest or a number.")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	addr := crypto.PubkeyToAddress(privateKey.PublicKey)
	fmt.Println("For Account:", addr)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var balance hexutil.Big
	if err := client.CallContext(ctx, &balance, "eth_getBalance", addr, balanceTag); err != nil {
		return err
	}

	fmt.Println(balance.ToInt())

	return nil
}
