package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every category against its manifest, then load it with the configured policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := a.world()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			manifests, err := w.Verify(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range w.Categories() {
				m := manifests[name]
				if m == nil {
					fmt.Fprintf(out, "%-10s no manifest\n", name)
					continue
				}
				var size int64
				for _, f := range m.Files {
					size += f.Size
				}
				fmt.Fprintf(out, "%-10s checksums ok (%s, save %s)\n", name, humanize.Bytes(uint64(size)), m.SaveID)
			}

			reports, err := w.Load(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range reports {
				fmt.Fprintf(out, "%-10s loaded %s entities, %d deleted, %d skipped, dropped types %v\n",
					r.Category, humanize.Comma(int64(r.Entities)), r.Deleted, r.SkippedEntries, r.DroppedTypes)
			}
			return nil
		},
	}
}
