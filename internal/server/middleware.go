package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
)

const (
	HeaderOrg  = "X-Org-ID"
	HeaderUser = "X-User-ID"
)

// OrgContext trusts the already-authenticated identity headers set by
// the fronting auth layer and resolves them into the request context.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgHeader := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if orgHeader == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		orgID, err := snowflake.ParseString(orgHeader)
		if err != nil || orgID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))

		if userHeader := strings.TrimSpace(c.GetHeader(HeaderUser)); userHeader != "" {
			userID, err := snowflake.ParseString(userHeader)
			if err != nil || userID == 0 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			ctx = orgcontext.WithUserID(ctx, int64(userID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
