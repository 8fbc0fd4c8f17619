package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zeusync/worldstore/internal/core/persistence"
	"github.com/zeusync/worldstore/internal/world"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [category...]",
		Short: "Print the type table, entity counts and file sizes of stored categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{world.AccountsCategory, world.GuildsCategory}
			}
			for _, name := range args {
				sum, err := persistence.Inspect(a.cfg.Root, name, world.SerialWidth)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), sum)
			}
			return nil
		},
	}
}

func printSummary(out io.Writer, sum *persistence.Summary) {
	fmt.Fprintf(out, "%s: %s entities (idx %s, tdb %s, bin %s)\n",
		sum.Category,
		humanize.Comma(int64(sum.Entities)),
		humanize.Bytes(uint64(sum.IndexBytes)),
		humanize.Bytes(uint64(sum.TypesBytes)),
		humanize.Bytes(uint64(sum.BlobBytes)),
	)
	if m := sum.Manifest; m != nil {
		fmt.Fprintf(out, "  last save %s, %s\n", m.SaveID, humanize.Time(m.SavedAt))
	}
	for ref, t := range sum.Types {
		fmt.Fprintf(out, "  [%d] %-24s %8s entities  %10s\n",
			ref, t.Name, humanize.Comma(int64(t.Entities)), humanize.Bytes(uint64(t.Bytes)))
	}
}
