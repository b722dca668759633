// Command typedump inspects typed instances: it lists the types of a schema,
// dumps value documents, deep-copies them and browses them interactively.
package main

import (
	"fmt"
	"os"
)

const exitUserError = 1

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitUserError)
	}
}
