// corevm drives the execution core from the command line: compiling and
// running a method, tracing its exits, and inspecting region/class state
// after the fact. It is the generalization of elsie's cmd/elsie/main.go
// (one hand-wired demo program) into a cobra.Command tree, grounded on
// saferwall-pe/cmd/pedumper.go's root-plus-subcommand shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "corevm",
		Short: "JVM8 execution core: template JIT, managed stack, region allocator",
		Long:  "corevm drives the execution core's compiler, code cache, and exit dispatcher outside of an embedding process.",
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newTraceCommand())
	root.AddCommand(newRegionsCommand())
	root.AddCommand(newClassesCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
