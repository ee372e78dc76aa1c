package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication. Login and OTP endpoints still resolve
// the clinic from the X-Clinic-ID header.
var publicPaths = map[string]bool{
	"/health":                  true,
	"/health/db":               true,
	"/api/v1/auth/login":       true,
	"/api/v1/auth/otp/request": true,
	"/api/v1/auth/otp/verify":  true,
}

// AuthSkipper is passed as JWTConfig.Skipper.
func AuthSkipper(c echo.Context) bool {
	if p := c.Path(); p != "" && publicPaths[p] {
		return true
	}
	return IsPublicPath(c.Request().URL.Path)
}

func IsPublicPath(path string) bool {
	return publicPaths[strings.TrimSuffix(path, "/")] || publicPaths[path]
}
