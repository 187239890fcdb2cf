// Package main is the modelwire command line: it resolves model providers, runs the dev
// console and manages the Milvus dev services.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
