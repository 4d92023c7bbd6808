package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sparrowvm/core/internal/config"
	"github.com/sparrowvm/core/internal/corevm"
)

func newRegionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "run the demo method, then report region/sub-region occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := corevm.New(corevm.DemoSource(), config.New())
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.RunStatic("Demo", "main", "()I"); err != nil {
				return err
			}

			stats := rt.Regions.Stats()

			sort.Slice(stats, func(i, j int) bool {
				if stats[i].Class != stats[j].Class {
					return stats[i].Class < stats[j].Class
				}
				return stats[i].Type.String() < stats[j].Type.String()
			})

			if len(stats) == 0 {
				fmt.Println("no sub-regions allocated")
				return nil
			}

			for _, s := range stats {
				fmt.Printf("%-12s %-30s committed=%d\n", s.Class, s.Type, s.Committed)
			}

			return nil
		},
	}

	return cmd
}
