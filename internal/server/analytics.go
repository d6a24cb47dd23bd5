package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/retailcore/internal/analytics/domain"
)

func (s *Server) GetAnalyticsSummary(c *gin.Context) {
	var query struct {
		Period string `form:"period"`
		From   string `form:"from"`
		To     string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	period, err := analyticsdomain.ParsePeriod(query.Period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.analyticsSvc.Summary(c.Request.Context(), analyticsdomain.SummaryRequest{
		Period: period,
		From:   from,
		To:     to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTopProducts(c *gin.Context) {
	req, ok := s.bindBreakdownRequest(c)
	if !ok {
		return
	}

	resp, err := s.analyticsSvc.TopProducts(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLocationPerformance(c *gin.Context) {
	req, ok := s.bindBreakdownRequest(c)
	if !ok {
		return
	}

	resp, err := s.analyticsSvc.LocationPerformance(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerPerformance(c *gin.Context) {
	req, ok := s.bindBreakdownRequest(c)
	if !ok {
		return
	}

	resp, err := s.analyticsSvc.CustomerPerformance(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) bindBreakdownRequest(c *gin.Context) (analyticsdomain.BreakdownRequest, bool) {
	var query struct {
		From       string `form:"from"`
		To         string `form:"to"`
		LocationID string `form:"location_id"`
		CustomerID string `form:"customer_id"`
		Limit      int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return analyticsdomain.BreakdownRequest{}, false
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return analyticsdomain.BreakdownRequest{}, false
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return analyticsdomain.BreakdownRequest{}, false
	}

	return analyticsdomain.BreakdownRequest{
		From:       from,
		To:         to,
		LocationID: strings.TrimSpace(query.LocationID),
		CustomerID: strings.TrimSpace(query.CustomerID),
		Limit:      query.Limit,
	}, true
}
