package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/retailcore/internal/report/domain"
)

type reportQuery struct {
	Period string `form:"period"`
	From   string `form:"from"`
	To     string `form:"to"`
}

func (s *Server) bindReportRequest(c *gin.Context) (reportdomain.Request, bool) {
	var query reportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return reportdomain.Request{}, false
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return reportdomain.Request{}, false
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return reportdomain.Request{}, false
	}

	return reportdomain.Request{
		Period: query.Period,
		From:   from,
		To:     to,
	}, true
}

func (s *Server) ExportSalesCSV(c *gin.Context) {
	req, ok := s.bindReportRequest(c)
	if !ok {
		return
	}

	r, err := s.reportSvc.SalesCSV(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	serveDownload(c, r, "text/csv",
		fmt.Sprintf("sales-%s.csv", time.Now().UTC().Format("2006-01-02")))
}

func (s *Server) ExportSummaryPDF(c *gin.Context) {
	req, ok := s.bindReportRequest(c)
	if !ok {
		return
	}

	r, err := s.reportSvc.SummaryPDF(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	serveDownload(c, r, "application/pdf",
		fmt.Sprintf("summary-%s.pdf", time.Now().UTC().Format("2006-01-02")))
}

func serveDownload(c *gin.Context, r io.Reader, contentType, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if buf, ok := r.(*bytes.Buffer); ok {
		c.Data(http.StatusOK, contentType, buf.Bytes())
		return
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		if size, err := rs.Seek(0, io.SeekEnd); err == nil {
			if _, err := rs.Seek(0, io.SeekStart); err == nil {
				c.DataFromReader(http.StatusOK, size, contentType, rs, nil)
				return
			}
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}
