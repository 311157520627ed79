package service

import (
	"time"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pipeline"
)

// BatchRequest asks for forecasts, risk and recommendations for many SKUs of one business.
type BatchRequest struct {
	RequestID       string                     `json:"requestId,omitempty"`
	UserID          string                     `json:"userId"`
	BusinessType    string                     `json:"businessType"`
	Region          string                     `json:"region"`
	StartDate       string                     `json:"startDate,omitempty"`
	HorizonDays     int                        `json:"horizonDays"`
	LeadTimeDays    int                        `json:"leadTimeDays,omitempty"`
	SafetyStockDays *int                       `json:"safetyStockDays,omitempty"`
	RiskTolerance   string                     `json:"riskTolerance,omitempty"`
	Estimates       []domain.InventoryEstimate `json:"estimates,omitempty"`
	Items           []BatchItem                `json:"items"`
}

// BatchItem is one SKU. Missing history and stock are read from the stores.
type BatchItem struct {
	SKU          string                    `json:"sku"`
	Category     string                    `json:"category"`
	CurrentStock *float64                  `json:"currentStock,omitempty"`
	LeadTimeDays int                       `json:"leadTimeDays,omitempty"`
	History      []domain.SalesObservation `json:"history,omitempty"`
}

type ItemState string

const (
	ItemOK     ItemState = "ok"
	ItemFailed ItemState = "failed"
)

// ItemStatus is the per-SKU outcome. A failed item never affects its siblings.
type ItemStatus struct {
	SKU       string                 `json:"sku"`
	Category  string                 `json:"category"`
	Status    ItemState              `json:"status"`
	ErrorKind string                 `json:"errorKind,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Field     string                 `json:"field,omitempty"`
	Forecast  *domain.ForecastResult `json:"forecast,omitempty"`
	Risk      *domain.RiskAssessment `json:"risk,omitempty"`
	Warnings  []domain.Warning       `json:"warnings,omitempty"`
}

// CalendarStatus summarises the festival resolution shared by every item
type CalendarStatus struct {
	Degraded bool     `json:"degraded"`
	Events   []string `json:"events"`
}

type BatchResponse struct {
	RequestID   string               `json:"requestId"`
	Status      pipeline.BatchStatus `json:"status"`
	Calendar    CalendarStatus       `json:"calendar"`
	Items       []ItemStatus         `json:"items"`
	Completed   int                  `json:"completed"`
	Failed      int                  `json:"failed"`
	GeneratedAt time.Time            `json:"generatedAt"`
	DurationMs  int64                `json:"durationMs"`
}
