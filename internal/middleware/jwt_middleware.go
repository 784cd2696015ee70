package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/checkout_gateway/internal/utils"
)

// MerchantIDKey is the gin context key holding the authenticated merchant.
const MerchantIDKey = "merchant_id"

// JWTMiddleware authenticates merchants with HS256 bearer tokens.
type JWTMiddleware struct {
	secret  string
	limiter *InvalidAuthRateLimiter
}

// NewJWTMiddleware creates the middleware. limiter may be nil.
func NewJWTMiddleware(secret string, limiter *InvalidAuthRateLimiter) *JWTMiddleware {
	return &JWTMiddleware{secret: secret, limiter: limiter}
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if m.limiter != nil && m.limiter.Blocked(ip) {
			utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.recordFailure(ip)
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ValidateMerchantJWT(parts[1], m.secret)
		if err != nil {
			m.recordFailure(ip)
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(MerchantIDKey, claims.MerchantID)
		c.Next()
	}
}

func (m *JWTMiddleware) recordFailure(ip string) {
	if m.limiter != nil {
		m.limiter.Allow(ip)
	}
}

// GetMerchantID returns the authenticated merchant, or "".
func GetMerchantID(c *gin.Context) string {
	return c.GetString(MerchantIDKey)
}
