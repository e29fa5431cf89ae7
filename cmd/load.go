package cmd

import (
	"fmt"
	"os"

	"github.com/calvinmclean/automated-garden/garden-scheduler/server"
	"github.com/spf13/cobra"
)

var loadCommand = &cobra.Command{
	Use:   "load FILE",
	Short: "Save resources from a YAML file to storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := readConfig()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("unable to open resources file: %w", err)
		}
		defer f.Close()

		count, err := server.LoadResources(cmd.Context(), config, f)
		if err != nil {
			return err
		}

		cmd.Printf("Saved %d resources\n", count)
		return nil
	},
}
