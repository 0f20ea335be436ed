package main

import (
	"fmt"
	"os"

	"account_backend/cmd/server/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
