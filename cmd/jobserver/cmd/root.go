package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cqnkjsx/htcondor/internal/common"
	commonconfig "github.com/cqnkjsx/htcondor/internal/common/config"
	"github.com/cqnkjsx/htcondor/internal/jobserver/configuration"
)

const (
	CustomConfigLocation string = "config"
	defaultConfigPath    string = "./config/jobserver"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "jobserver",
		SilenceUsage: true,
		Short:        "Tracks the live and historical jobs of a schedd",
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	if err := viper.BindPFlag(CustomConfigLocation, cmd.PersistentFlags().Lookup(CustomConfigLocation)); err != nil {
		panic(err)
	}

	cmd.AddCommand(
		runCmd(),
		checkConfigCmd(),
	)

	return cmd
}

func loadConfig() (configuration.JobServerConfig, error) {
	var config configuration.JobServerConfig
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)

	common.LoadConfig(&config, defaultConfigPath, userSpecifiedConfigs)

	err := config.Validate()
	if err != nil {
		commonconfig.LogValidationErrors(err)
	}
	return config, err
}
