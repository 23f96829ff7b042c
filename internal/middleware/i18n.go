// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/trade-registry/internal/i18n"
)

func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", ParseLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// ParseLanguage picks the first supported language from an Accept-Language
// header such as "ar-IQ,ar;q=0.9,en;q=0.8".
func ParseLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		if tag == "" {
			continue
		}
		base := strings.ToLower(strings.SplitN(strings.ReplaceAll(tag, "_", "-"), "-", 2)[0])
		switch base {
		case "ar", "en":
			return base
		}
	}
	return i18n.DefaultLanguage()
}
