package netatmo

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
)

const (
	// rain data is daily so anything shorter than a day is not meaningful
	minRainInterval = 24 * time.Hour
	// daily highs are averaged over at least three days
	minTemperatureInterval = 72 * time.Hour
)

type weatherData map[time.Time]float32

type weatherDataResponse struct {
	Body weatherData `json:"body"`
}

// UnmarshalJSON reads a response that uses epoch timestamps as keys for a list of values, keeping the first value
func (d *weatherData) UnmarshalJSON(s []byte) error {
	var inputMap map[string][]float32
	err := json.Unmarshal(s, &inputMap)
	if err != nil {
		return err
	}

	result := weatherData{}
	for k, v := range inputMap {
		epochInt, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			continue
		}
		result[time.Unix(epochInt, 0)] = v[0]
	}

	*d = result
	return nil
}

func (d weatherData) Total() float32 {
	total := float32(0)
	for _, data := range d {
		total += data
	}
	return total
}

func (d weatherData) Average() float32 {
	if len(d) == 0 {
		return 0
	}
	return d.Total() / float32(len(d))
}

func (c *Client) getMeasure(dataType, moduleID string, beginDate time.Time, endDate *time.Time) (weatherData, error) {
	values := url.Values{}
	values.Add("device_id", c.StationID)
	values.Add("module_id", moduleID)
	values.Add("scale", "1day")
	values.Add("optimize", "false")
	values.Add("real_time", "false")
	values.Add("type", dataType)
	values.Add("date_begin", strconv.FormatInt(beginDate.Unix(), 10))
	if endDate != nil {
		values.Add("date_end", strconv.FormatInt(endDate.Unix(), 10))
	}

	var respData weatherDataResponse
	err := c.get("/api/getmeasure", values, &respData)
	if err != nil {
		return nil, fmt.Errorf("error getting %s: %w", dataType, err)
	}
	return respData.Body, nil
}

// GetTotalRain returns the sum of all rainfall in millimeters in the given period
func (c *Client) GetTotalRain(since time.Duration) (float32, error) {
	if since < minRainInterval {
		since = minRainInterval
	}

	rainData, err := c.getMeasure("sum_rain", c.RainModuleID, clock.Now().Add(-since), nil)
	if err != nil {
		return 0, err
	}

	return rainData.Total(), nil
}

// GetAverageHighTemperature returns the average daily high temperature between the given time and the end of
// yesterday, since a daily high is misleading if queried mid-day
func (c *Client) GetAverageHighTemperature(since time.Duration) (float32, error) {
	if since < minTemperatureInterval {
		since = minTemperatureInterval
	}

	now := clock.Now()
	beginDate := now.Add(-since)
	beginDate = time.Date(beginDate.Year(), beginDate.Month(), beginDate.Day()-1, 23, 59, 59, 0, now.Location())
	endDate := time.Date(now.Year(), now.Month(), now.Day()-1, 23, 59, 59, 0, now.Location())

	temperatureData, err := c.getMeasure("max_temp", c.OutdoorModuleID, beginDate, &endDate)
	if err != nil {
		return 0, err
	}

	return temperatureData.Average(), nil
}
