package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sparrowvm/core/internal/config"
	"github.com/sparrowvm/core/internal/corevm"
	"github.com/sparrowvm/core/internal/log"
)

func newRunCommand() *cobra.Command {
	var (
		debug    bool
		dumpPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "compile and run the built-in demo method",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				log.LogLevel.Set(slog.LevelDebug)
			}

			var opts []config.OptionFn
			if dumpPath != "" {
				opts = append(opts, config.WithClassDump(dumpPath))
			}

			rt, err := corevm.New(corevm.DemoSource(), config.New(opts...))
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.RunStatic("Demo", "main", "()I")
			if err != nil {
				return err
			}

			fmt.Printf("Demo.main() = %d\n", result)

			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&dumpPath, "dump", "", "write compiled methods to this debug dump file")

	return cmd
}
