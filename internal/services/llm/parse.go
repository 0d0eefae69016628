package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/liuyingduo/stock-news/internal/models"
)

// rawAnalysis is the loose shape parsed from model output before
// normalization. Numeric fields are pointers so missing and zero are
// distinguishable.
type rawAnalysis struct {
	EventCategory   string      `json:"event_category"`
	EventTypes      []string    `json:"event_types"`
	ImpactScore     *float64    `json:"impact_score"`
	SentimentScore  *float64    `json:"sentiment_score"`
	ConfidenceScore *float64    `json:"confidence_score"`
	IsHype          bool        `json:"is_hype"`
	ImpactReason    string      `json:"impact_reason"`
	AffectedSectors []rawEntity `json:"affected_sectors"`
	AffectedStocks  []rawEntity `json:"affected_stocks"`
	KeyMaterials    []rawEntity `json:"key_materials"`
}

type rawEntity struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
	Trend  string `json:"trend"`
}

// extractJSON strips markdown code fences and cuts the substring between the
// first '{' and the last '}'.
func extractJSON(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return cleaned[start : end+1], nil
}

// parseAnalysis turns raw model output into a fully valid AIAnalysis.
// Normalization order: category against the closed set (company default),
// types filtered to the closed set (other default), numeric clamps with
// neutral defaults, entities kept only with a non-empty name.
func parseAnalysis(raw string) (*models.AIAnalysis, error) {
	jsonText, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var payload rawAnalysis
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}

	analysis := &models.AIAnalysis{
		Category:        normalizeCategory(payload.EventCategory),
		Types:           normalizeTypes(payload.EventTypes),
		ImpactScore:     numericOr(payload.ImpactScore, 0),
		SentimentScore:  numericOr(payload.SentimentScore, 0),
		ConfidenceScore: numericOr(payload.ConfidenceScore, 0.5),
		IsHype:          payload.IsHype,
		ImpactReason:    payload.ImpactReason,
		AffectedSectors: normalizeEntities(payload.AffectedSectors, "SECTOR_"),
		AffectedStocks:  normalizeEntities(payload.AffectedStocks, "STOCK_"),
		KeyMaterials:    normalizeMaterials(payload.KeyMaterials),
		AnalyzedAt:      time.Now(),
	}
	if analysis.ImpactReason == "" {
		analysis.ImpactReason = "AI analysis completed"
	}
	analysis.Clamp()

	return analysis, nil
}

// degradedAnalysis is the sentinel result for any failure on the enrichment
// path. Fully valid, all-neutral, with the error embedded in the reason.
func degradedAnalysis(err error) *models.AIAnalysis {
	return &models.AIAnalysis{
		Category:        models.CategoryCompany,
		Types:           []models.EventType{models.TypeOther},
		ImpactScore:     0,
		SentimentScore:  0,
		ConfidenceScore: 0,
		IsHype:          false,
		ImpactReason:    fmt.Sprintf("AI analysis failed: %v", err),
		AffectedSectors: []models.AffectedEntity{},
		AffectedStocks:  []models.AffectedEntity{},
		KeyMaterials:    []models.KeyMaterial{},
		AnalyzedAt:      time.Now(),
	}
}

func normalizeCategory(raw string) models.EventCategory {
	category := models.EventCategory(strings.ToLower(strings.TrimSpace(raw)))
	if models.IsValidCategory(category) {
		return category
	}
	return models.CategoryCompany
}

func normalizeTypes(raw []string) []models.EventType {
	types := make([]models.EventType, 0, len(raw))
	for _, t := range raw {
		typ := models.EventType(strings.ToLower(strings.TrimSpace(t)))
		if models.IsValidType(typ) {
			types = append(types, typ)
		}
	}
	if len(types) == 0 {
		return []models.EventType{models.TypeOther}
	}
	return types
}

func numericOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func normalizeEntities(raw []rawEntity, codePrefix string) []models.AffectedEntity {
	entities := make([]models.AffectedEntity, 0, len(raw))
	for _, e := range raw {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		code := strings.TrimSpace(e.Code)
		if code == "" {
			code = codePrefix + name
		}
		entities = append(entities, models.AffectedEntity{
			Name:   name,
			Code:   code,
			Reason: strings.TrimSpace(e.Reason),
		})
	}
	return entities
}

func normalizeMaterials(raw []rawEntity) []models.KeyMaterial {
	materials := make([]models.KeyMaterial, 0, len(raw))
	for _, m := range raw {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		materials = append(materials, models.KeyMaterial{
			Name:  name,
			Trend: strings.TrimSpace(m.Trend),
		})
	}
	return materials
}
