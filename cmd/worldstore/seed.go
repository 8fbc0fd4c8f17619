package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zeusync/worldstore/internal/world"
)

func newSeedCmd(a *app) *cobra.Command {
	var accounts, guilds int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add generated accounts and guilds to the stored world and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w, err := a.world()
			if err != nil {
				return err
			}
			if _, err := w.Load(ctx); err != nil {
				return err
			}

			start := w.Accounts.Count()
			for i := 0; i < accounts; i++ {
				name := fmt.Sprintf("user%06d", start+i+1)
				if _, err := w.Accounts.Create(name, "", world.AccessPlayer); err != nil {
					return err
				}
			}
			types := []world.GuildType{world.GuildRegular, world.GuildChaos, world.GuildOrder}
			offset := w.Guilds.Count()
			for i := 0; i < guilds; i++ {
				n := offset + i + 1
				if _, err := w.Guilds.Create(fmt.Sprintf("Guild %d", n), fmt.Sprintf("G%d", n), types[n%len(types)]); err != nil {
					return err
				}
			}

			began := time.Now()
			reports, err := w.Save(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(out, "%-10s %8s entities  %10s  save %s\n",
					r.Category, humanize.Comma(int64(r.Entities)), humanize.Bytes(uint64(r.BlobBytes)), r.SaveID)
			}
			fmt.Fprintf(out, "saved in %s\n", time.Since(began).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVar(&accounts, "accounts", 100, "accounts to add")
	cmd.Flags().IntVar(&guilds, "guilds", 10, "guilds to add")
	return cmd
}
