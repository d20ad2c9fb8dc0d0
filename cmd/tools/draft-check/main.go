// cmd/tools/draft-check/main.go
package main

import (
	"os"
	"time"
)

func main() {
	if err := newRootCmd(os.Stdout, time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}
