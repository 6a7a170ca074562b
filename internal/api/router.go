package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"github.com/socialfeed/feed-api/internal/api/gql"
	"github.com/socialfeed/feed-api/internal/api/handler"
	"github.com/socialfeed/feed-api/internal/api/middleware"
	"github.com/socialfeed/feed-api/internal/core/ports"

	// registers the generated Swagger document
	_ "github.com/socialfeed/feed-api/docs"
)

// multipartSlack is added to the upload limit to leave room for the form
// fields and part headers around the image.
const multipartSlack = 1 << 20

// Deps holds everything the router wires into handlers.
type Deps struct {
	Log    zerolog.Logger
	Auth   ports.AuthService
	Tokens ports.TokenVerifier
	Posts  ports.PostService
	Status ports.StatusService

	// Listeners serves GET /ws.
	Listeners echo.HandlerFunc

	// ImageDir is served under /images when set.
	ImageDir       string
	MaxUploadBytes int64

	// AuthRateLimit is the per-IP request rate allowed on /auth routes.
	// Zero disables the limiter.
	AuthRateLimit float64

	// Health lists the dependencies checked by the readiness probe.
	Health map[string]handler.PingFunc

	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	if d.MaxUploadBytes > 0 {
		e.Use(echomiddleware.BodyLimit(fmt.Sprintf("%dB", d.MaxUploadBytes+multipartSlack)))
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "feed",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/ws"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	feedHandler := handler.NewFeedHandler(d.Posts, d.Status)
	authMiddleware := middleware.Auth(d.Tokens)

	schema, err := gql.NewSchema(d.Auth, d.Posts)
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}
	graphqlHandler := gql.NewHandler(schema, d.Log)

	// --- Auth routes ---
	auth := e.Group("/auth")
	if d.AuthRateLimit > 0 {
		auth.Use(authRateLimiter(d.AuthRateLimit))
	}
	auth.PUT("/signup", authHandler.Signup)
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)

	// --- Feed routes ---
	feed := e.Group("/feed", authMiddleware)
	feed.GET("/posts", feedHandler.ListPosts)
	feed.POST("/post", feedHandler.CreatePost)
	feed.GET("/post/:postId", feedHandler.GetPost)
	feed.PUT("/post/:postId", feedHandler.UpdatePost)
	feed.DELETE("/post/:postId", feedHandler.DeletePost)
	feed.GET("/status", feedHandler.GetStatus)
	feed.PUT("/status", feedHandler.UpdateStatus)

	e.POST("/graphql", graphqlHandler.Serve)

	if d.Listeners != nil {
		e.GET("/ws", d.Listeners)
	}
	if d.ImageDir != "" {
		e.Static("/images", d.ImageDir)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func authRateLimiter(perSecond float64) echo.MiddlewareFunc {
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}
