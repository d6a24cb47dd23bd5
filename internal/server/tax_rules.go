package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	taxruledomain "github.com/smallbiznis/retailcore/internal/taxrule/domain"
)

func (s *Server) ListTaxRules(c *gin.Context) {
	var query struct {
		Jurisdiction string `form:"jurisdiction"`
		TaxType      string `form:"tax_type"`
		ActiveAt     string `form:"active_at"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	activeAt, err := parseOptionalTime(query.ActiveAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("active_at", "invalid_active_at", "invalid active_at"))
		return
	}

	resp, err := s.taxRuleSvc.List(c.Request.Context(), taxruledomain.ListRequest{
		Jurisdiction: strings.TrimSpace(query.Jurisdiction),
		TaxType:      strings.TrimSpace(query.TaxType),
		ActiveAt:     activeAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateTaxRule(c *gin.Context) {
	var req taxruledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taxRuleSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateTaxRule(c *gin.Context) {
	var req taxruledomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.taxRuleSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTaxRule(c *gin.Context) {
	if err := s.taxRuleSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SeedDefaultVAT(c *gin.Context) {
	resp, err := s.taxRuleSvc.SeedDefaultVAT(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
