package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/config"
)

// Weather implements the get_weather tool against the OpenWeather current
// conditions endpoint.
type Weather struct {
	cfg        config.WeatherConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// openWeatherResponse mirrors the slice of the current-conditions payload we
// consume.
type openWeatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func NewWeather(cfg config.WeatherConfig, logger *zap.Logger) *Weather {
	return &Weather{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("tools.weather"),
	}
}

// Tool returns the get_weather descriptor.
func (w *Weather) Tool() schemas.Tool {
	return schemas.Tool{
		Name:        "get_weather",
		Description: "Gets current weather conditions for a location. Use for questions about present weather, temperature, humidity or wind.",
		Parameters: map[string]schemas.ParameterSpec{
			"location": {Type: "string", Description: "The city name or place to get weather for."},
		},
		Invoke: w.invoke,
	}
}

func (w *Weather) invoke(ctx context.Context, args map[string]any) (*schemas.ToolResult, error) {
	location, err := stringArg(args, "location")
	if err != nil {
		return nil, err
	}
	if w.cfg.APIKey == "" {
		return nil, fmt.Errorf("weather API key is not configured (set REAGENT_TOOLS_WEATHER_API_KEY)")
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("appid", w.cfg.APIKey)
	params.Set("units", w.cfg.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no weather data found for %q", location)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	description := "unknown conditions"
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}

	place := payload.Name
	if place == "" {
		place = location
	}

	unitSymbol := "°C"
	if w.cfg.Units == "imperial" {
		unitSymbol = "°F"
	}

	summary := fmt.Sprintf("Current weather in %s: %s, %.1f%s (feels like %.1f%s), humidity %d%%, wind %.1f m/s.",
		place, description,
		payload.Main.Temp, unitSymbol,
		payload.Main.FeelsLike, unitSymbol,
		payload.Main.Humidity, payload.Wind.Speed)

	w.logger.Debug("Weather lookup complete",
		zap.String("location", location),
		zap.Float64("temperature", payload.Main.Temp))

	return &schemas.ToolResult{
		Summary: summary,
		Data: map[string]any{
			"location":    place,
			"temperature": payload.Main.Temp,
			"feels_like":  payload.Main.FeelsLike,
			"humidity":    payload.Main.Humidity,
			"wind_speed":  payload.Wind.Speed,
			"description": description,
		},
	}, nil
}
