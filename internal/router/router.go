// Package router wires handlers, guards and rate limits onto the echo
// route tree.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/edugenius/edugenius-api/internal/config"
	"github.com/edugenius/edugenius-api/internal/handler"
	"github.com/edugenius/edugenius-api/internal/middleware"
	"github.com/edugenius/edugenius-api/internal/model"
)

// Deps collects everything Register needs to build the route tree.
type Deps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Guard     *middleware.Guard
	RateLimit config.RateLimitConfig
	RDB       *redis.Client
}

// Register mounts every route on e.  Public auth endpoints live under
// /v1/auth with the credential ones rate limited; everything past the
// guard group requires a live session, and /v1/users management is
// admin only.
func Register(e *echo.Echo, d Deps) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	e.GET("/healthz", handler.Health)

	limited := middleware.RateLimit(d.RateLimit, d.RDB)

	auth := e.Group("/v1/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login, limited)
	auth.POST("/forgot-password", d.Auth.ForgotPassword, limited)
	auth.POST("/verify-reset-code", d.Auth.VerifyResetCode)
	auth.POST("/reset-password", d.Auth.ResetPassword)

	authed := auth.Group("", d.Guard.Authenticate())
	authed.POST("/logout", d.Auth.Logout)
	authed.POST("/verify-token", d.Auth.VerifyToken)
	authed.POST("/change-password", d.Auth.ChangePassword)

	users := e.Group("/v1/users", d.Guard.Authenticate())
	users.GET("/me", d.Users.Me)
	users.PUT("/me", d.Users.UpdateProfile)

	admin := users.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.GET("", d.Users.GetAllUsers)
	admin.POST("", d.Users.CreateUser)
	admin.GET("/:id", d.Users.GetUserByID)
	admin.PUT("/:id", d.Users.UpdateUserByID)
	admin.DELETE("/:id", d.Users.DeleteUserByID)
}
