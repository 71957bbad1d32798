// Command homie5-controller discovers Homie 5 devices and sends commands to
// them.
package main

import (
	"fmt"
	"os"
)

// Version is injected during build.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
