package helpers

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientIDHeader lets API clients identify themselves for rate limiting.
const ClientIDHeader = "X-Client-ID"

// GetClientKey returns the key requests are rate limited and logged under:
// the X-Client-ID header when present, otherwise the caller's real IP. The
// result is memoised on the echo context.
func GetClientKey(c echo.Context) string {
	if key, ok := GetClientKeyRaw(c); ok {
		return key
	}
	key := strings.TrimSpace(c.Request().Header.Get(ClientIDHeader))
	if key == "" {
		key = c.RealIP()
	}
	SetClientKey(c, key)
	return key
}
