// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"strconv"

	"account/config"
	"account/internal/delivery/http/middleware"
	"account/internal/delivery/http/router/handler"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
)

// multipartOverhead leaves room for boundaries and part headers around the image.
const multipartOverhead = 64 * 1024

type RouterParams struct {
	fx.In

	Config         *config.Config
	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	cfg            *config.Config
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		cfg:            params.Config,
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// ImageUploadPath is exempt from the global body limit; it carries its own.
const ImageUploadPath = "/profile/image"

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) error {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Public account routes
	e.POST("/register", r.accountHandler.Register)
	e.GET("/verify/:token", r.accountHandler.VerifyEmail)
	e.POST("/login", r.accountHandler.Login)
	e.POST("/forgot-password", r.accountHandler.ForgotPassword)
	e.PATCH("/reset-password/:token", r.accountHandler.ResetPassword)

	uploadLimit, err := r.uploadBodyLimit()
	if err != nil {
		return err
	}

	// Routes that require a bearer token
	authed := e.Group("", r.authMiddleware.Authenticate)
	{
		authed.GET("/profile", r.accountHandler.GetProfile)
		authed.PATCH("/updateProfile", r.accountHandler.UpdateProfile)
		authed.POST(ImageUploadPath, r.accountHandler.UploadProfileImage, echomiddleware.BodyLimit(uploadLimit))
		authed.DELETE("/deleteUser", r.accountHandler.DeleteAccount)
	}

	return nil
}

func (r *router) uploadBodyLimit() (string, error) {
	maxSize, err := humanize.ParseBytes(r.cfg.Upload.MaxSize)
	if err != nil {
		return "", err
	}

	return strconv.FormatUint(maxSize+multipartOverhead, 10) + "B", nil
}
