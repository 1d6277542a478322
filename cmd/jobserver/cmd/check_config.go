package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func checkConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkConfig",
		Short: "Loads and validates the configuration without starting the server",
		RunE: func(_ *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			log.Infof("configuration is valid: queue log %s, history %s, redis publication %t, supervisor %t",
				config.QueueLog.Path, config.History.Dir, config.Redis.Enabled, config.Supervisor.Enabled)
			return nil
		},
	}
	return cmd
}
