// Command corrector finds compounds whose formula, after a known correction,
// equals another compound in the same dataset.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
