// core is a minimal, hand-wired entry point for the execution core,
// standing in the same spot as the teacher's root main.go: no CLI
// framework, just a single demo run with its result printed straight to
// stdout. The full cobra-based tool lives at cmd/corevm.
package main

import (
	"fmt"
	"os"

	"github.com/sparrowvm/core/internal/config"
	"github.com/sparrowvm/core/internal/corevm"
)

func main() {
	rt, err := corevm.New(corevm.DemoSource(), config.New())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rt.Close()

	result, err := rt.RunStatic("Demo", "main", "()I")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Demo.main() = %d\n", result)
}
