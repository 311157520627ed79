package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/festival"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/service"
)

// ForecastAPI is the service surface the handlers need
type ForecastAPI interface {
	RunBatch(ctx context.Context, req service.BatchRequest) (*service.BatchResponse, error)
	ResolveFestivals(ctx context.Context, regions []string, dateRange domain.DateRange, categories []string) (festival.Resolution, error)
	GetLatest(ctx context.Context, userID, sku string) (*repository.StoredResult, error)
	RecordInventory(ctx context.Context, userID string, snapshots []domain.InventorySnapshot) error
	RecordSales(ctx context.Context, userID string, observations []domain.SalesObservation) error
}

type ForecastHandler struct {
	service ForecastAPI
}

func NewForecastHandler(service ForecastAPI) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// RunBatch handles POST /forecasts
func (h *ForecastHandler) RunBatch(c *gin.Context) {
	var req service.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}

	resp, err := h.service.RunBatch(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "failed to run forecast batch")
		return
	}
	c.JSON(http.StatusOK, resp)
}

type resolveRequest struct {
	Regions    []string `json:"regions"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Categories []string `json:"categories"`
}

// ResolveFestivals handles POST /festivals/resolve
func (h *ForecastHandler) ResolveFestivals(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}
	start, err := domain.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		badRequest(c, "startDate", "must be YYYY-MM-DD")
		return
	}
	end, err := domain.ParseDate(strings.TrimSpace(req.EndDate))
	if err != nil {
		badRequest(c, "endDate", "must be YYYY-MM-DD")
		return
	}

	res, err := h.service.ResolveFestivals(c.Request.Context(), req.Regions, domain.DateRange{Start: start, End: end}, req.Categories)
	if err != nil {
		writeError(c, err, "failed to resolve festivals")
		return
	}

	events := res.Events
	if events == nil {
		events = []domain.FestivalEvent{}
	}
	c.JSON(http.StatusOK, gin.H{
		"multipliers": res.Multipliers.Flatten(),
		"events":      events,
		"degraded":    res.Degraded,
	})
}

// GetLatest handles GET /forecasts/:user/:sku/latest
func (h *ForecastHandler) GetLatest(c *gin.Context) {
	result, err := h.service.GetLatest(c.Request.Context(), c.Param("user"), c.Param("sku"))
	if err != nil {
		writeError(c, err, "failed to fetch latest forecast")
		return
	}
	c.JSON(http.StatusOK, result)
}

type inventoryRequest struct {
	UserID    string                     `json:"userId"`
	Snapshots []domain.InventorySnapshot `json:"snapshots"`
}

// RecordInventory handles POST /inventory
func (h *ForecastHandler) RecordInventory(c *gin.Context) {
	var req inventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}
	if len(req.Snapshots) == 0 {
		badRequest(c, "snapshots", "at least one snapshot is required")
		return
	}

	if err := h.service.RecordInventory(c.Request.Context(), req.UserID, req.Snapshots); err != nil {
		writeError(c, err, "failed to record inventory")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recorded": len(req.Snapshots)})
}

type salesRequest struct {
	UserID       string                    `json:"userId"`
	Observations []domain.SalesObservation `json:"observations"`
}

// RecordSales handles POST /sales
func (h *ForecastHandler) RecordSales(c *gin.Context) {
	var req salesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}
	if len(req.Observations) == 0 {
		badRequest(c, "observations", "at least one observation is required")
		return
	}

	if err := h.service.RecordSales(c.Request.Context(), req.UserID, req.Observations); err != nil {
		writeError(c, err, "failed to record sales")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recorded": len(req.Observations)})
}
