package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

// writeError maps domain errors onto HTTP statuses. msg is what clients see for internal errors.
func writeError(c *gin.Context, err error, msg string) {
	var (
		ve *domain.ValidationError
		ce *domain.CollaboratorError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &ce):
		log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg, "details": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func badRequest(c *gin.Context, field, reason string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + field + ": " + reason, "field": field})
}
