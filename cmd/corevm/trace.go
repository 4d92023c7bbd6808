package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sparrowvm/core/internal/config"
	"github.com/sparrowvm/core/internal/corevm"
)

// newTraceCommand runs the demo method with ExitTraceInstruction wired in,
// putting the controlling terminal into raw mode while it waits for a
// keypress between prompts, the same way the teacher's
// cmd/internal/tty.Console puts stdin in raw mode around its device loop
// (term.MakeRaw/term.Restore) rather than implementing terminal handling by
// hand.
func newTraceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "run the demo method with trace-mode exits enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			fd := int(os.Stdin.Fd())

			raw := term.IsTerminal(fd)

			var restore *term.State
			if raw {
				var err error
				restore, err = term.MakeRaw(fd)
				if err != nil {
					return fmt.Errorf("trace: %w", err)
				}
				defer term.Restore(fd, restore)
			}

			out := bufio.NewWriter(os.Stdout)
			defer out.Flush()

			if raw {
				fmt.Fprint(out, "press any key to begin tracing\r\n")
				out.Flush()

				buf := make([]byte, 1)
				os.Stdin.Read(buf)
			}

			rt, err := corevm.New(corevm.DemoSource(), config.New(config.WithTracing()))
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.RunStatic("Demo", "main", "()I")

			nl := "\n"
			if raw {
				nl = "\r\n"
			}

			if err != nil {
				fmt.Fprintf(out, "trace run failed: %s%s", err, nl)
				return err
			}

			fmt.Fprintf(out, "Demo.main() = %d%s", result, nl)

			return nil
		},
	}

	return cmd
}
