// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		lang := defaultLang

		// Handle cases like "hi-IN,hi;q=0.9,en;q=0.8"
		if header := c.GetHeader("Accept-Language"); header != "" {
			first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
			switch strings.ToLower(first) {
			case "hi", "hi-in", "hi_in":
				lang = "hi"
			case "en", "en-us", "en-gb", "en-in":
				lang = "en"
			}
		}

		// Set language in context
		c.Set("lang", lang)
		c.Next()
	}
}
