// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// I18nMiddleware negotiates the response language from Accept-Language.
// Catalogs ship for en and zh_TW; everything else falls back to English.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := "en"

		if header := c.GetHeader("Accept-Language"); header != "" {
			// Only the first preference matters, e.g. "zh-TW,zh;q=0.9,en;q=0.8"
			first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
			switch first {
			case "zh-TW", "zh-Hant", "zh_TW", "zh":
				lang = "zh_TW"
			}
		}

		c.Set("lang", lang)
		c.Next()
	}
}
