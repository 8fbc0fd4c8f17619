package main

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/worldstore/internal/config"
	"github.com/zeusync/worldstore/internal/core/observability/log"
	"github.com/zeusync/worldstore/internal/injector"
	"github.com/zeusync/worldstore/internal/world"
)

type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "worldstore",
		Short:         "Save, load and inspect persisted world categories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = log.Provide().Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newSeedCmd(a),
		newInspectCmd(a),
		newVerifyCmd(a),
	)
	return root
}

// world builds the world described by the loaded config.
func (a *app) world() (*world.World, error) {
	return injector.InitializeWorld(a.cfg)
}
