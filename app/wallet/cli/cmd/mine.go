package cmd

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var privateURL string

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine the candidate block",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVar(&privateURL, "private-url", "http://localhost:9080", "Url of the private api of the node.")
}

func mineRun(cmd *cobra.Command, args []string) error {
	var status struct {
		Status string `json:"status"`
	}
	var failure struct {
		Error string `json:"error"`
	}

	resp, err := resty.New().
		SetBaseURL(privateURL).
		SetTimeout(timeout).
		R().
		SetContext(cmd.Context()).
		SetResult(&status).
		SetError(&failure).
		Post("/v1/mining/signal")
	if err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("mining signal: %s: %s", resp.Status(), failure.Error)
	}

	fmt.Println(status.Status)

	return nil
}
