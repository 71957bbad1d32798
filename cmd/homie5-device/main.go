// Command homie5-device runs an example Homie 5 light with a settable
// on/off state and brightness.
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
