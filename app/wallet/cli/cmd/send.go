package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to    string
	value string
	gas   uint64
	data  []byte
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transaction signed by the node for this account",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().StringVarP(&value, "value", "v", "0", "Value to send in wei.")
	sendCmd.Flags().Uint64VarP(&gas, "gas", "g", 0, "Gas allowance, the node default is used when zero.")
	sendCmd.Flags().BytesHexVarP(&data, "data", "d", nil, "Data to send.")
}

func sendRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return fmt.Errorf("invalid value %q", value)
	}

	tx := map[string]any{
		"from":  crypto.PubkeyToAddress(privateKey.PublicKey),
		"value": (*hexutil.Big)(amount),
	}
	if to != "" {
		if !common.IsHexAddress(to) {
			return fmt.Errorf("invalid to address %q", to)
		}
		tx["to"] = common.HexToAddress(to)
	}
	if gas != 0 {
		tx["gas"] = hexutil.Uint64(gas)
	}
	if len(data) > 0 {
		tx["data"] = hexutil.Bytes(data)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var hash *common.Hash
	if err := client.CallContext(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return err
	}

	if hash == nil {
		return errors.New("transaction not applied: insufficient balance")
	}

	fmt.Println(hash.Hex())

	return nil
}
