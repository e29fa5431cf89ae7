package weather

import (
	"log/slog"
	"time"

	"github.com/rs/xid"
)

// MinimumDuration is the shortest scaled watering that is worth sending to a controller.
// Anything shorter is skipped
const MinimumDuration = time.Second

// ClientGetter looks up a configured weather client by ID
type ClientGetter interface {
	GetWeatherClient(id xid.ID) (Client, error)
}

// Scaler applies a Control to a base duration using live readings
type Scaler struct {
	clients ClientGetter
	logger  *slog.Logger
}

// NewScaler creates a Scaler that gets weather clients from clients
func NewScaler(clients ClientGetter, logger *slog.Logger) *Scaler {
	return &Scaler{clients: clients, logger: logger.With("source", "weather_scaler")}
}

// ResolveDuration scales base by the temperature control and then the rain control, each using readings
// over the lookback window. A control that cannot get its reading contributes a factor of 1. The composed
// factor is not clamped beyond what each control bounds itself
func (s *Scaler) ResolveDuration(base, lookback time.Duration, control *Control) time.Duration {
	if control == nil {
		return base
	}

	factor := float32(1)
	if control.Temperature != nil {
		factor *= s.factor(control.Temperature, MetricAverageHighTemperature, lookback)
	}
	if control.Rain != nil {
		factor *= s.factor(control.Rain, MetricTotalRain, lookback)
	}

	return time.Duration(float64(base) * float64(factor)).Round(time.Millisecond)
}

func (s *Scaler) factor(sc *ScaleControl, metric Metric, lookback time.Duration) float32 {
	logger := s.logger.With("weather_client_id", sc.ClientID.String(), "metric", string(metric))

	client, err := s.clients.GetWeatherClient(sc.ClientID)
	if err != nil {
		logger.Warn("unable to get weather client, using neutral scale", "error", err)
		return 1
	}

	var value float32
	var result float32
	switch metric {
	case MetricAverageHighTemperature:
		value, err = client.GetAverageHighTemperature(lookback)
		if err == nil {
			result = sc.Scale(value)
		}
	case MetricTotalRain:
		value, err = client.GetTotalRain(lookback)
		if err == nil {
			result = sc.InvertedScaleDownOnly(value)
		}
	}
	if err != nil {
		logger.Warn("unable to get weather reading, using neutral scale", "error", err)
		return 1
	}

	logger.Debug("scaled watering duration", "value", value, "scale_factor", result)
	return result
}
