package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-outreach-go/internal/model"
)

// ListCompanies returns companies at or above min_priority
func (h *Handlers) ListCompanies(c *gin.Context) {
	companies, err := h.store.ListCompanies(c.Request.Context(), queryInt(c, "min_priority", 0), queryInt(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

// CreateCompany adds a company
func (h *Handlers) CreateCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	company := &model.Company{
		Name:         req.Name,
		Website:      req.Website,
		Industry:     req.Industry,
		Size:         req.Size,
		Location:     req.Location,
		FundingStage: req.FundingStage,
		Source:       req.Source,
		Notes:        req.Notes,
		Priority:     req.Priority,
	}
	if _, err := h.manager.AddCompany(c.Request.Context(), company); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// ImportCompanies reads a CSV request body
func (h *Handlers) ImportCompanies(c *gin.Context) {
	res, err := h.importer.ImportCompanies(c.Request.Context(), c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
