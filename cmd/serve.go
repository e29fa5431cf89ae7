package cmd

import (
	"github.com/calvinmclean/automated-garden/garden-scheduler/server"
	"github.com/spf13/cobra"
)

var (
	validateData  bool
	resourcesFile string

	serveCommand = &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run"},
		Short:   "Run the scheduler",
		Long:    `Connects to the MQTT broker, schedules every stored resource and runs until interrupted`,
		RunE:    Serve,
	}
)

func init() {
	serveCommand.Flags().BoolVar(&validateData, "validate", false, "fail to start if any stored resource is invalid")
	serveCommand.Flags().StringVar(&resourcesFile, "resources", "", "YAML file of resources to save to storage before starting")
}

// Serve will execute the Run function provided by the `server` package
func Serve(cmd *cobra.Command, _ []string) error {
	config, err := readConfig()
	if err != nil {
		return err
	}

	cmd.Printf("Starting garden-scheduler with MQTT broker %s:%d...\n", config.MQTTConfig.Broker, config.MQTTConfig.Port)
	return server.Run(config, server.RunOptions{
		ValidateData:  validateData,
		ResourcesFile: resourcesFile,
	})
}
