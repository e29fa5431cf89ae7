package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/calvinmclean/automated-garden/garden-scheduler/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	jobsResourcesFile string
	jobsCount         int
	jobsFormat        string

	jobsCommand = &cobra.Command{
		Use:   "jobs",
		Short: "Print the scheduled jobs",
		Long:  `Builds the jobs for every stored resource without connecting to MQTT or InfluxDB and prints their next fire times`,
		RunE:  Jobs,
	}
)

func init() {
	jobsCommand.Flags().StringVar(&jobsResourcesFile, "resources", "", "YAML file of resources to save to storage first")
	jobsCommand.Flags().IntVar(&jobsCount, "count", 3, "number of upcoming fire times to print for each job")
	jobsCommand.Flags().StringVar(&jobsFormat, "format", "yaml", "output format (yaml or json)")
}

// Jobs prints the output of server.ScheduledJobs
func Jobs(cmd *cobra.Command, _ []string) error {
	if jobsFormat != "yaml" && jobsFormat != "json" {
		return fmt.Errorf("invalid format %q", jobsFormat)
	}

	config, err := readConfig()
	if err != nil {
		return err
	}

	var resources io.Reader
	if jobsResourcesFile != "" {
		f, err := os.Open(jobsResourcesFile)
		if err != nil {
			return fmt.Errorf("unable to open resources file: %w", err)
		}
		defer f.Close()
		resources = f
	}

	jobs, err := server.ScheduledJobs(cmd.Context(), config, resources, jobsCount)
	if err != nil {
		return err
	}

	return writeJobs(cmd.OutOrStdout(), jobsFormat, jobs)
}

func writeJobs(w io.Writer, format string, jobs []server.JobSchedule) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(jobs)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(jobs)
}
