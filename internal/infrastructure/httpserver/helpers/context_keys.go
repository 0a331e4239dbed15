package helpers

import (
	"github.com/labstack/echo/v4"
)

type ctxKey string

const (
	keyClientKey ctxKey = "client_key"
)

func SetClientKey(c echo.Context, key string) { c.Set(string(keyClientKey), key) }
func GetClientKeyRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyClientKey))
	s, ok := v.(string)
	return s, ok && s != ""
}
