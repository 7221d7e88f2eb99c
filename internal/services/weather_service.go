// internal/services/weather_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/cache"
	"github.com/agrilink/agrilink-backend/internal/config"
)

const (
	minPlantingTemp  = 15.0
	maxPlantingTemp  = 30.0
	lowHumidity      = 40.0
	highWindSpeed    = 20.0
	weatherCacheKey  = "weather:"
	weatherService   = "Weather service"
	maxLocationRunes = 100
)

type WeatherReport struct {
	Location          string   `json:"location"`
	Temperature       float64  `json:"temperature"`
	Humidity          float64  `json:"humidity"`
	Description       string   `json:"description"`
	WindSpeed         float64  `json:"windSpeed"`
	IsGoodForPlanting bool     `json:"isGoodForPlanting"`
	Recommendations   []string `json:"recommendations"`
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// WeatherService looks up current conditions on OpenWeather and rates them
// for planting.
type WeatherService struct {
	config     config.WeatherConfig
	cache      cache.Cache
	httpClient *http.Client
}

// NewWeatherService accepts a nil cache.
func NewWeatherService(cfg config.WeatherConfig, c cache.Cache) *WeatherService {
	return &WeatherService{
		config:     cfg,
		cache:      c,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WeatherService) GetCurrentWeather(ctx context.Context, location string) (*WeatherReport, error) {
	location = strings.TrimSpace(location)
	if location == "" || len([]rune(location)) > maxLocationRunes {
		return nil, apperrors.Validation("Location is required and must be at most 100 characters")
	}

	if s.config.APIKey == "" {
		return nil, apperrors.ServiceUnavailable(weatherService, apperrors.ErrNotConfigured)
	}

	key := weatherCacheKey + strings.ToLower(location)
	if s.cache != nil {
		var cached WeatherReport
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Weather cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	report, err := s.fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		ttl := time.Duration(s.config.CacheTTLMinutes) * time.Minute
		if err := s.cache.SetJSON(ctx, key, report, ttl); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Weather cache write failed")
		}
	}

	return report, nil
}

func (s *WeatherService) fetch(ctx context.Context, location string) (*WeatherReport, error) {
	query := url.Values{}
	query.Set("q", location)
	query.Set("appid", s.config.APIKey)
	query.Set("units", "metric")
	endpoint := strings.TrimRight(s.config.BaseURL, "/") + "/weather?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to build weather request: %w", err))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable(weatherService, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.LocationNotFound(location)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.ServiceUnavailable(weatherService,
			fmt.Errorf("openweather returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.ServiceUnavailable(weatherService, fmt.Errorf("decode weather response: %w", err))
	}

	return payload.report(location), nil
}

func (p *openWeatherResponse) report(requested string) *WeatherReport {
	report := &WeatherReport{
		Location:    p.Name,
		Temperature: p.Main.Temp,
		Humidity:    p.Main.Humidity,
		WindSpeed:   p.Wind.Speed,
	}
	if report.Location == "" {
		report.Location = requested
	}
	if len(p.Weather) > 0 {
		report.Description = p.Weather[0].Description
	}

	report.IsGoodForPlanting, report.Recommendations = AssessPlanting(report.Temperature, report.Humidity, report.WindSpeed)
	return report
}

// AssessPlanting rates conditions in metric units.
func AssessPlanting(temp, humidity, windSpeed float64) (bool, []string) {
	var recommendations []string

	switch {
	case temp < minPlantingTemp:
		recommendations = append(recommendations, "Temperature is too low for most crops")
	case temp > maxPlantingTemp:
		recommendations = append(recommendations, "Temperature is too high for most crops")
	}
	if humidity < lowHumidity {
		recommendations = append(recommendations, "Low humidity - ensure proper irrigation")
	}
	if windSpeed > highWindSpeed {
		recommendations = append(recommendations, "High winds - avoid planting delicate crops")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Weather conditions are favorable for planting")
	}

	return temp >= minPlantingTemp && temp <= maxPlantingTemp, recommendations
}
