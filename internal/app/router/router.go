// Package router assembles the Gin engine and its routes.
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	accounthandler "account_backend/internal/feature/account/transport/handler"
	platformhandler "account_backend/internal/platform/http/handler"
	jwtmw "account_backend/internal/platform/jwt"
)

// NewRouter registers the public, authenticated and health routes.
// corsOrigins of ["*"] (or empty) allows every origin.
func NewRouter(accounts *accounthandler.AccountHandler, tokens jwtmw.Verifier, corsOrigins []string, checks ...platformhandler.Check) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(corsOrigins)))

	// No authentication required
	// Health check
	health := platformhandler.Health(checks...)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	api := r.Group("/api")
	// Registration does not log the account in
	api.POST("/register", accounts.Register)
	// Login (JWT issued)
	api.POST("/login", accounts.Login)

	// Authenticated routes
	// jwtmw.AuthRequired() requires a bearer token on every request in the group
	auth := api.Group("/")
	auth.Use(jwtmw.AuthRequired(tokens))
	{
		auth.GET("/me", accounts.GetMe)
		auth.PUT("/me", accounts.UpdateMe)
		auth.PUT("/update", accounts.UpdateMe)
		auth.PUT("/me/password", accounts.ChangePassword)
		auth.GET("/users/:id", accounts.GetUser)
		auth.DELETE("/users/:id", accounts.DeleteUser)
	}

	return r
}

// corsConfig allows the headers the precondition protocol needs across origins.
func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowHeaders("Authorization", "If-Unmodified-Since")
	cfg.AddExposeHeaders("Last-Modified")
	return cfg
}
