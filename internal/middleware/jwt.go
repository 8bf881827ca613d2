package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/framefinder/internal/pkg/errcode"
	"github.com/xxxsen/framefinder/internal/pkg/jwt"
	"github.com/xxxsen/framefinder/internal/pkg/response"
)

const ContextClientKey = "client"

// JWTAuth guards the API with bearer tokens. An empty secret leaves the API
// open. Media urls may carry the token in the "token" query parameter since
// players cannot set headers.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(token, secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextClientKey, claims.Client)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		token := c.Query("token")
		return token, token != ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
