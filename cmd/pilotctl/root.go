package main

import (
	"github.com/spf13/cobra"

	"air-jarvis/internal/config"
	"air-jarvis/internal/pilots"
)

type commandContext struct {
	dir string
	cfg *config.Config
}

func (c *commandContext) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// store opens the record directory from --dir, falling back to PILOTS_DIR.
func (c *commandContext) store() (*pilots.Store, error) {
	dir := c.dir
	if dir == "" {
		cfg, err := c.config()
		if err != nil {
			return nil, err
		}
		dir = cfg.PilotsDir
	}
	return pilots.NewStore(dir)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "pilotctl",
		Short:         "Inspect Air Jarvis pilot records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.dir, "dir", "d", "", "Pilot records directory (default $PILOTS_DIR)")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newKeyCommand())
	rootCmd.AddCommand(newReportCommand(ctx))
	return rootCmd
}
