// internal/handlers/weather.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-backend/internal/services"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

type WeatherHandler struct {
	weatherService *services.WeatherService
}

func NewWeatherHandler(weatherService *services.WeatherService) *WeatherHandler {
	return &WeatherHandler{
		weatherService: weatherService,
	}
}

// GET /weather/:location
func (h *WeatherHandler) GetCurrentWeather(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.weatherService.GetCurrentWeather(ctx, c.Param("location"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}
