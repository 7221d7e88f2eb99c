// internal/services/advisor_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/llm"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

const (
	cropSystemPrompt     = "You are an expert agricultural advisor with deep knowledge of farming practices, crop selection and market analysis. Provide practical, actionable advice for farmers."
	plantingSystemPrompt = "You are an expert agricultural advisor specializing in crop cultivation. Provide detailed, practical planting advice that farmers can implement immediately."
	pestSystemPrompt     = "You are an expert agricultural advisor specializing in pest and disease management. Provide accurate diagnosis and treatment recommendations."
)

// AdvisorService turns farm details into prompts for the configured LLM.
type AdvisorService struct {
	client  llm.Client
	timeout time.Duration
	now     func() time.Time
}

type CropRecommendationRequest struct {
	Location          string   `json:"location" validate:"required"`
	SoilType          string   `json:"soilType" validate:"required"`
	Season            string   `json:"season" validate:"required"`
	FarmSize          float64  `json:"farmSize" validate:"required,gte=0.1"`
	WaterAvailability string   `json:"waterAvailability" validate:"required"`
	Budget            *float64 `json:"budget" validate:"required,gte=0"`
	Experience        *int     `json:"experience" validate:"required,gte=0"`
	PreviousCrops     []string `json:"previousCrops,omitempty"`
}

type PlantingAdviceRequest struct {
	Crop              string  `json:"crop" validate:"required"`
	Location          string  `json:"location" validate:"required"`
	SoilType          string  `json:"soilType" validate:"required"`
	Season            string  `json:"season" validate:"required"`
	WeatherConditions string  `json:"weatherConditions" validate:"required"`
	FarmSize          float64 `json:"farmSize" validate:"required,gte=0.1"`
	IrrigationType    string  `json:"irrigationType" validate:"required"`
}

type PestDiagnosisRequest struct {
	Crop              string `json:"crop" validate:"required"`
	Symptoms          string `json:"symptoms" validate:"required,max=2000"`
	AffectedArea      string `json:"affectedArea" validate:"required"`
	WeatherConditions string `json:"weatherConditions" validate:"required"`
	Stage             string `json:"stage" validate:"required"`
}

type CropRecommendationResponse struct {
	Recommendation string `json:"recommendation"`
	Metadata       struct {
		*CropRecommendationRequest
		Timestamp time.Time `json:"timestamp"`
	} `json:"metadata"`
}

type PlantingAdviceResponse struct {
	Advice   string `json:"advice"`
	Metadata struct {
		*PlantingAdviceRequest
		Timestamp time.Time `json:"timestamp"`
	} `json:"metadata"`
}

type PestDiagnosisResponse struct {
	Diagnosis string `json:"diagnosis"`
	Metadata  struct {
		*PestDiagnosisRequest
		Timestamp time.Time `json:"timestamp"`
	} `json:"metadata"`
}

// NewAdvisorService accepts a nil client; every call then reports the
// advisor as unavailable.
func NewAdvisorService(client llm.Client, timeout time.Duration) *AdvisorService {
	return &AdvisorService{
		client:  client,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *AdvisorService) CropRecommendation(ctx context.Context, req *CropRecommendationRequest) (*CropRecommendationResponse, error) {
	trimFields(&req.Location, &req.SoilType, &req.Season, &req.WaterAvailability)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	previous := "None"
	if len(req.PreviousCrops) > 0 {
		previous = strings.Join(req.PreviousCrops, ", ")
	}

	prompt := fmt.Sprintf(`Provide crop recommendations for a farmer with the following details:

Location: %s
Soil Type: %s
Season: %s
Farm Size: %g acres
Water Availability: %s
Budget: %g
Farming Experience: %d years
Previous Crops: %s

Please provide:
1. Top 3-5 recommended crops with reasons
2. Expected yield per acre
3. Market demand and pricing
4. Required inputs and estimated costs
5. Risk factors and mitigation strategies
6. Best practices for cultivation

Format the response in a clear, structured manner suitable for farmers.`,
		req.Location, req.SoilType, req.Season, req.FarmSize, req.WaterAvailability,
		*req.Budget, *req.Experience, previous)

	text, err := s.complete(ctx, "crop-recommendation", llm.Request{
		System:      cropSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	resp := &CropRecommendationResponse{Recommendation: text}
	resp.Metadata.CropRecommendationRequest = req
	resp.Metadata.Timestamp = s.now().UTC()
	return resp, nil
}

func (s *AdvisorService) PlantingAdvice(ctx context.Context, req *PlantingAdviceRequest) (*PlantingAdviceResponse, error) {
	trimFields(&req.Crop, &req.Location, &req.SoilType, &req.Season, &req.WeatherConditions, &req.IrrigationType)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	prompt := fmt.Sprintf(`Provide detailed planting advice for %s cultivation with the following details:

Crop: %s
Location: %s
Soil Type: %s
Season: %s
Weather Conditions: %s
Farm Size: %g acres
Irrigation Type: %s

Please provide:
1. Optimal planting time and conditions
2. Seed selection and treatment
3. Land preparation requirements
4. Spacing and planting density
5. Irrigation schedule and water requirements
6. Fertilizer application plan
7. Pest and disease management
8. Expected timeline from planting to harvest
9. Common mistakes to avoid
10. Tips for maximizing yield

Format the response in a clear, step-by-step manner suitable for farmers.`,
		req.Crop, req.Crop, req.Location, req.SoilType, req.Season, req.WeatherConditions,
		req.FarmSize, req.IrrigationType)

	text, err := s.complete(ctx, "planting-advice", llm.Request{
		System:      plantingSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   1200,
		Temperature: 0.6,
	})
	if err != nil {
		return nil, err
	}

	resp := &PlantingAdviceResponse{Advice: text}
	resp.Metadata.PlantingAdviceRequest = req
	resp.Metadata.Timestamp = s.now().UTC()
	return resp, nil
}

func (s *AdvisorService) PestDiagnosis(ctx context.Context, req *PestDiagnosisRequest) (*PestDiagnosisResponse, error) {
	trimFields(&req.Crop, &req.Symptoms, &req.AffectedArea, &req.WeatherConditions, &req.Stage)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	prompt := fmt.Sprintf(`Help diagnose potential pest or disease issues for %s with the following symptoms:

Crop: %s
Symptoms: %s
Affected Area: %s
Weather Conditions: %s
Growth Stage: %s

Please provide:
1. Likely pest or disease identification
2. Causes and contributing factors
3. Immediate treatment recommendations
4. Preventive measures
5. Organic and chemical control options
6. When to seek professional help
7. Expected recovery timeline

Format the response in a clear, actionable manner.`,
		req.Crop, req.Crop, req.Symptoms, req.AffectedArea, req.WeatherConditions, req.Stage)

	text, err := s.complete(ctx, "pest-diagnosis", llm.Request{
		System:      pestSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   800,
		Temperature: 0.5,
	})
	if err != nil {
		return nil, err
	}

	resp := &PestDiagnosisResponse{Diagnosis: text}
	resp.Metadata.PestDiagnosisRequest = req
	resp.Metadata.Timestamp = s.now().UTC()
	return resp, nil
}

func (s *AdvisorService) complete(ctx context.Context, kind string, req llm.Request) (string, error) {
	if s.client == nil {
		return "", apperrors.ServiceUnavailable("AI advisor", apperrors.ErrNotConfigured)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := s.client.Complete(ctx, req)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"provider": s.client.Provider(),
			"kind":     kind,
		}).Error("AI advisor request failed")
		return "", apperrors.ServiceUnavailable("AI advisor", err)
	}

	logrus.WithFields(logrus.Fields{
		"provider": s.client.Provider(),
		"kind":     kind,
		"duration": time.Since(started),
	}).Debug("AI advisor request completed")

	return strings.TrimSpace(text), nil
}

func trimFields(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
