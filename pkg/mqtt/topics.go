package mqtt

import (
	"bytes"
	"strings"
	"text/template"
)

const (
	waterTopicTemplate        = "{{.Garden}}/command/water"
	stopTopicTemplate         = "{{.Garden}}/command/stop"
	stopAllTopicTemplate      = "{{.Garden}}/command/stop_all"
	lightTopicTemplate        = "{{.Garden}}/command/light"
	updateConfigTopicTemplate = "{{.Garden}}/command/update_config"
)

// Inbound data topics. The first segment is the Garden's topic prefix
const (
	HealthDataTopic      = "+/data/health"
	TemperatureDataTopic = "+/data/temperature"
	HumidityDataTopic    = "+/data/humidity"
	WaterDataTopic       = "+/data/water"
	LightDataTopic       = "+/data/light"
	LogsDataTopic        = "+/data/logs"
)

// DataTopics are all topics that controllers publish telemetry on
var DataTopics = []string{
	HealthDataTopic,
	TemperatureDataTopic,
	HumidityDataTopic,
	WaterDataTopic,
	LightDataTopic,
	LogsDataTopic,
}

// WaterTopic returns the topic string for watering a zone
func WaterTopic(topicPrefix string) (string, error) {
	return executeTopicTemplate(waterTopicTemplate, topicPrefix)
}

// StopTopic returns the topic string for stopping watering a single zone
func StopTopic(topicPrefix string) (string, error) {
	return executeTopicTemplate(stopTopicTemplate, topicPrefix)
}

// StopAllTopic returns the topic string for stopping watering all zones in a garden
func StopAllTopic(topicPrefix string) (string, error) {
	return executeTopicTemplate(stopAllTopicTemplate, topicPrefix)
}

// LightTopic returns the topic string for changing the light state in a Garden
func LightTopic(topicPrefix string) (string, error) {
	return executeTopicTemplate(lightTopicTemplate, topicPrefix)
}

// UpdateConfigTopic returns the topic string for pushing a new configuration to a controller
func UpdateConfigTopic(topicPrefix string) (string, error) {
	return executeTopicTemplate(updateConfigTopicTemplate, topicPrefix)
}

// ParseDataTopic splits "{prefix}/data/{kind}" into its prefix and kind
func ParseDataTopic(topic string) (topicPrefix string, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[1] != "data" || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// TopicMatches reports whether topic is matched by a subscription filter using + and # wildcards
func TopicMatches(filter, topic string) bool {
	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")
	for i, f := range filterParts {
		if f == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if f != "+" && f != topicParts[i] {
			return false
		}
	}
	return len(filterParts) == len(topicParts)
}

// executeTopicTemplate is a helper function used by all the exported topic evaluation functions
func executeTopicTemplate(templateString string, topicPrefix string) (string, error) {
	t := template.Must(template.New("topic").Parse(templateString))
	var result bytes.Buffer
	data := map[string]string{"Garden": topicPrefix}
	err := t.Execute(&result, data)
	return result.String(), err
}
