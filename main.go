package main

import "github.com/harborops/fleetledger/cmd"

func main() {
	cmd.Execute()
}
