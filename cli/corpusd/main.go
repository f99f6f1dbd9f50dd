package main

import (
	"os"

	corpusdcmder "github.com/corpusd/corpusd/cmd/corpusd"
)

func main() {
	cmd := corpusdcmder.NewCorpusdCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
