// This program is a command line wallet for the node.
package main

import "github.com/ardanlabs/ethnode/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
