package cmd

import (
	"fmt"
	"strings"

	"github.com/calvinmclean/automated-garden/garden-scheduler/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "GARDEN_APP"

var (
	// Used for flags.
	configFilename string

	rootCommand = &cobra.Command{
		Use:   "garden-scheduler",
		Short: "Scheduler for a fleet of garden controllers",
		Long:  `This CLI runs the scheduler that waters Zones and toggles lights for garden controllers over MQTT`,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCommand.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCommand.PersistentFlags().StringVar(&configFilename, "config", "", "path to config file")

	rootCommand.AddCommand(serveCommand, jobsCommand, loadCommand, controllerCommand)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// readConfig decodes the merged file, environment and flag config
func readConfig() (server.Config, error) {
	var config server.Config
	err := viper.Unmarshal(&config, viper.DecodeHook(server.DecodeHook()))
	if err != nil {
		return server.Config{}, fmt.Errorf("unable to read config from file: %w", err)
	}
	return config, nil
}
