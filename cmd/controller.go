package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/controller"
	"github.com/calvinmclean/automated-garden/garden-scheduler/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	topicPrefix                 string
	numZones                    uint
	publishWaterEvent           bool
	publishHealth               bool
	healthInterval              time.Duration
	publishTemperatureHumidity  bool
	temperatureHumidityInterval time.Duration
	temperatureValue            float64
	humidityValue               float64

	controllerCommand = &cobra.Command{
		Use:   "controller",
		Short: "Run a mock garden-controller",
		Long:  `Subscribes on a Garden's MQTT command topics to act as a mock garden-controller for testing purposes`,
		RunE:  Controller,
	}
)

func init() {
	controllerCommand.PersistentFlags().StringVarP(&topicPrefix, "topic", "t", "test-garden", "MQTT topic prefix of the garden-controller")
	_ = viper.BindPFlag("controller.topic_prefix", controllerCommand.PersistentFlags().Lookup("topic"))

	controllerCommand.PersistentFlags().UintVarP(&numZones, "zones", "z", 0, "Number of Zones the controller accepts water commands for (0 accepts any)")
	_ = viper.BindPFlag("controller.num_zones", controllerCommand.PersistentFlags().Lookup("zones"))

	controllerCommand.PersistentFlags().BoolVar(&publishWaterEvent, "publish-water-event", true, "Whether or not watering events should be published for logging")
	_ = viper.BindPFlag("controller.publish_water_event", controllerCommand.PersistentFlags().Lookup("publish-water-event"))

	controllerCommand.PersistentFlags().BoolVar(&publishHealth, "publish-health", true, "Whether or not to publish health data every interval")
	_ = viper.BindPFlag("controller.publish_health", controllerCommand.PersistentFlags().Lookup("publish-health"))

	controllerCommand.PersistentFlags().DurationVar(&healthInterval, "health-interval", time.Minute, "Interval between health data publishing")
	_ = viper.BindPFlag("controller.health_interval", controllerCommand.PersistentFlags().Lookup("health-interval"))

	controllerCommand.PersistentFlags().BoolVar(&publishTemperatureHumidity, "publish-temperature-humidity", false, "Whether or not to publish temperature and humidity data")
	_ = viper.BindPFlag("controller.publish_temperature_humidity", controllerCommand.PersistentFlags().Lookup("publish-temperature-humidity"))

	controllerCommand.PersistentFlags().DurationVar(&temperatureHumidityInterval, "temperature-humidity-interval", time.Minute, "Interval for temperature and humidity publishing")
	_ = viper.BindPFlag("controller.temperature_humidity_interval", controllerCommand.PersistentFlags().Lookup("temperature-humidity-interval"))

	controllerCommand.PersistentFlags().Float64Var(&temperatureValue, "temperature-value", 25, "The value to use for temperature data publishing")
	_ = viper.BindPFlag("controller.temperature_value", controllerCommand.PersistentFlags().Lookup("temperature-value"))

	controllerCommand.PersistentFlags().Float64Var(&humidityValue, "humidity-value", 50, "The value to use for humidity data publishing")
	_ = viper.BindPFlag("controller.humidity_value", controllerCommand.PersistentFlags().Lookup("humidity-value"))
}

type controllerConfig struct {
	Controller controller.Config `mapstructure:"controller"`
}

// Controller will start up the mock garden-controller
func Controller(cmd *cobra.Command, _ []string) error {
	config, err := readConfig()
	if err != nil {
		return err
	}

	var cc controllerConfig
	err = viper.Unmarshal(&cc, viper.DecodeHook(server.DecodeHook()))
	if err != nil {
		return fmt.Errorf("unable to read controller config: %w", err)
	}

	c, err := controller.NewController(cc.Controller, config.MQTTConfig, config.LogConfig.NewLogger())
	if err != nil {
		return fmt.Errorf("error creating Controller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Starting mock garden-controller %q...\n", cc.Controller.TopicPrefix)
	return c.Start(ctx)
}
