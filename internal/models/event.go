// Package models defines the core data types flowing through the ingestion
// pipeline: raw notices from the exchanges, normalized events, AI analysis
// payloads, and the reference entities they touch.
package models

import (
	"time"
)

// EventCategory is the top-level classification of an event.
type EventCategory string

const (
	CategoryGlobalMacro EventCategory = "global_macro"
	CategoryPolicy      EventCategory = "policy"
	CategoryIndustry    EventCategory = "industry"
	CategoryCompany     EventCategory = "company"
)

// ValidCategories returns the closed set of event categories.
func ValidCategories() []EventCategory {
	return []EventCategory{CategoryGlobalMacro, CategoryPolicy, CategoryIndustry, CategoryCompany}
}

// IsValidCategory reports whether c belongs to the closed category set.
func IsValidCategory(c EventCategory) bool {
	switch c {
	case CategoryGlobalMacro, CategoryPolicy, CategoryIndustry, CategoryCompany:
		return true
	}
	return false
}

// EventType is a fine-grained event subtype. An event carries zero or more.
type EventType string

const (
	TypeMacroEcon     EventType = "macro_econ"
	TypeGeopolitics   EventType = "geopolitics"
	TypeRegulatory    EventType = "regulatory"
	TypeLiquidity     EventType = "liquidity"
	TypeSentiment     EventType = "sentiment"
	TypeTechInnov     EventType = "tech_innov"
	TypeSupplyChain   EventType = "supply_chain"
	TypePriceVol      EventType = "price_vol"
	TypeFinPerf       EventType = "fin_perf"
	TypeOrderContract EventType = "order_contract"
	TypeMergerRe      EventType = "merger_re"
	TypeCapitalAction EventType = "capital_action"
	TypeBuyback       EventType = "buyback"
	TypeHolderChange  EventType = "holder_change"
	TypeInsiderTrans  EventType = "insider_trans"
	TypeRiskCrisis    EventType = "risk_crisis"
	TypeLitigation    EventType = "litigation"
	TypeInfoChange    EventType = "info_change"
	TypeOpsInfo       EventType = "ops_info"
	TypeOther         EventType = "other"
)

// ValidTypes returns the closed set of event subtypes.
func ValidTypes() []EventType {
	return []EventType{
		TypeMacroEcon, TypeGeopolitics, TypeRegulatory, TypeLiquidity,
		TypeSentiment, TypeTechInnov, TypeSupplyChain, TypePriceVol,
		TypeFinPerf, TypeOrderContract, TypeMergerRe, TypeCapitalAction,
		TypeBuyback, TypeHolderChange, TypeInsiderTrans, TypeRiskCrisis,
		TypeLitigation, TypeInfoChange, TypeOpsInfo, TypeOther,
	}
}

// IsValidType reports whether t belongs to the closed subtype set.
func IsValidType(t EventType) bool {
	for _, v := range ValidTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// Event is the persisted unit of ingested information.
// Category and Types are always drawn from the closed enums. A nil Analysis
// means "not yet enriched"; failed enrichment is stored as an Analysis whose
// reason records the failure.
type Event struct {
	ID               string        `json:"id" badgerhold:"key"`
	Title            string        `json:"title" badgerhold:"index"`
	Content          string        `json:"content"`
	Category         EventCategory `json:"event_category" badgerhold:"index"`
	Types            []EventType   `json:"event_types"`
	AnnouncementDate time.Time     `json:"announcement_date" badgerhold:"index"`
	ExpectedDate     *time.Time    `json:"expected_date,omitempty"`
	StockCode        string        `json:"stock_code,omitempty"`
	StockName        string        `json:"stock_name,omitempty"`
	Source           string        `json:"source,omitempty"`
	OriginalURL      string        `json:"original_url,omitempty"`
	Analysis         *AIAnalysis   `json:"ai_analysis,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// HasAnalysis reports whether the event has been enriched.
func (e *Event) HasAnalysis() bool {
	return e.Analysis != nil
}

// Sector is a reference entity created lazily the first time an analysis
// mentions it. Code is the natural upsert key.
type Sector struct {
	Code      string    `json:"code" badgerhold:"key"`
	Name      string    `json:"name" badgerhold:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stock is a reference entity keyed by security code.
type Stock struct {
	Code      string    `json:"code" badgerhold:"key"`
	Name      string    `json:"name" badgerhold:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
