package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sparrowvm/core/internal/config"
	"github.com/sparrowvm/core/internal/corevm"
)

func newClassesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "run the demo method, then list every class the class table prepared",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := corevm.New(corevm.DemoSource(), config.New())
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.RunStatic("Demo", "main", "()I"); err != nil {
				return err
			}

			for _, rc := range rt.Classes.Classes() {
				fmt.Println(rc)
			}

			return nil
		},
	}

	return cmd
}
