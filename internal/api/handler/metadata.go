package handler

import (
	"net/http"

	"github.com/aqoutlook/aqoutlook/internal/api/models"
	"github.com/aqoutlook/aqoutlook/internal/api/response"
	"github.com/aqoutlook/aqoutlook/internal/outlook"
	"github.com/aqoutlook/aqoutlook/internal/risk"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums - get enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		Categories: risk.AllCategories(),
		Trends:     risk.AllTrends(),
		Decisions:  outlook.AllDecisions(),
	}
	response.JSON(w, r, http.StatusOK, enums)
}
