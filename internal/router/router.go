package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/document-registry/internal/handler"
	"github.com/iliyamo/document-registry/internal/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth   *handler.AuthHandler
	Docs   *handler.DocumentHandler
	Files  *handler.FileHandler
	Health echo.HandlerFunc
}

// Options carries the route-level switches.
type Options struct {
	// DocsRequireAuth puts the /data routes behind bearer auth.  Without
	// it they are public, as the registry has always been.
	DocsRequireAuth bool
	// UploadPrefix is the path uploaded files are served under.
	UploadPrefix string
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers /register and /login, both behind limit, and the
// bearer-protected /protected check route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth echo.MiddlewareFunc, limit echo.MiddlewareFunc) {
	e.POST("/register", a.Register, limit)
	e.POST("/login", a.Login, limit)
	e.GET("/protected", a.Protected, auth)
}

// RegisterDocuments registers the /data routes and the upload file route.
func RegisterDocuments(e *echo.Echo, d *handler.DocumentHandler, f *handler.FileHandler, auth echo.MiddlewareFunc, opts Options) {
	var mws []echo.MiddlewareFunc
	if opts.DocsRequireAuth {
		mws = append(mws, auth)
	}
	g := e.Group("/data", mws...)
	g.GET("/get", d.List)
	g.POST("/add", d.Create)
	g.PUT("/update/:id", d.Update)
	g.DELETE("/delete/:id", d.Delete)

	prefix := opts.UploadPrefix
	if prefix == "" {
		prefix = "/uploads"
	}
	e.GET(prefix+"/:name", f.Get, mws...)
}

// Register wires every route group.
func Register(e *echo.Echo, h Handlers, auth middleware.TokenVerifier, limit echo.MiddlewareFunc, opts Options) {
	bearer := middleware.BearerAuth(auth)
	RegisterRoutes(e, h)
	RegisterAuth(e, h.Auth, bearer, limit)
	RegisterDocuments(e, h.Docs, h.Files, bearer, opts)
}
