// internal/handlers/lookup.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/trade-registry/internal/services"
	"github.com/javajoker/trade-registry/internal/utils"
)

type LookupHandler struct {
	lookupService *services.LookupService
}

func NewLookupHandler(lookupService *services.LookupService) *LookupHandler {
	return &LookupHandler{lookupService: lookupService}
}

// GET /lookups/statuses
func (h *LookupHandler) Statuses(c *gin.Context) {
	statuses, err := h.lookupService.Statuses()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, statuses)
}

// GET /lookups/provinces
func (h *LookupHandler) Provinces(c *gin.Context) {
	provinces, err := h.lookupService.Provinces()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, provinces)
}

// GET /lookups/company-types
func (h *LookupHandler) CompanyTypes(c *gin.Context) {
	types, err := h.lookupService.CompanyTypes()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, types)
}

// GET /lookups/business-purposes
func (h *LookupHandler) BusinessPurposes(c *gin.Context) {
	purposes, err := h.lookupService.BusinessPurposes()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, purposes)
}
