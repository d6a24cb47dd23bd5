package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	saledomain "github.com/smallbiznis/retailcore/internal/sale/domain"
)

type saleLineRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice *string `json:"unit_price,omitempty"`
	UnitCost  *string `json:"unit_cost,omitempty"`
}

type createSaleRequest struct {
	LocationID string            `json:"location_id"`
	CustomerID string            `json:"customer_id,omitempty"`
	BranchName string            `json:"branch_name,omitempty"`
	Items      []saleLineRequest `json:"items"`
}

func (s *Server) CreateSale(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]saledomain.LineInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, saledomain.LineInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			UnitCost:  item.UnitCost,
		})
	}

	resp, err := s.saleSvc.Create(c.Request.Context(), saledomain.CreateRequest{
		LocationID: strings.TrimSpace(req.LocationID),
		CustomerID: strings.TrimSpace(req.CustomerID),
		BranchName: strings.TrimSpace(req.BranchName),
		Items:      items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// QuoteSale prices a cart without committing anything.
func (s *Server) QuoteSale(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]saledomain.LineInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, saledomain.LineInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			UnitCost:  item.UnitCost,
		})
	}

	resp, err := s.saleSvc.ComputeVAT(c.Request.Context(), items)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	var query struct {
		From       string `form:"from"`
		To         string `form:"to"`
		LocationID string `form:"location_id"`
		CustomerID string `form:"customer_id"`
		Limit      int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
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

	resp, err := s.saleSvc.List(c.Request.Context(), saledomain.ListRequest{
		From:       from,
		To:         to,
		LocationID: strings.TrimSpace(query.LocationID),
		CustomerID: strings.TrimSpace(query.CustomerID),
		Limit:      query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleByID(c *gin.Context) {
	resp, err := s.saleSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
