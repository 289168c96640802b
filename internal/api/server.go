// Package api exposes the promotional-content endpoints and the manual
// trigger for the click notification batch.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ristorino-api/internal/common/config"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/models"
	"ristorino-api/internal/notify"
)

type promotionsProvider interface {
	GetRestaurantPromotions(ctx context.Context, restaurantID int, onlyCurrent *bool, branchID *int) (*models.RestaurantPromotions, error)
}

type detailProvider interface {
	GetRestaurantDetail(ctx context.Context, restaurantID, languageID int) (json.RawMessage, error)
}

type clickRegistrar interface {
	RegisterClick(ctx context.Context, req models.ClickRequest) (map[string]interface{}, error)
}

type clickNotifier interface {
	NotifyAllPending(ctx context.Context, restaurantID *int) (*notify.Report, error)
}

// Server wires the HTTP surface to the domain services.
type Server struct {
	engine     *gin.Engine
	promotions promotionsProvider
	details    detailProvider
	clicks     clickRegistrar
	notifier   clickNotifier
	cfg        config.ServerConfig
	log        logger.Logger
}

func NewServer(
	cfg config.ServerConfig,
	promotions promotionsProvider,
	details detailProvider,
	clicks clickRegistrar,
	notifier clickNotifier,
	log logger.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		promotions: promotions,
		details:    details,
		clicks:     clicks,
		notifier:   notifier,
		cfg:        cfg,
		log:        log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.Use(corsMiddleware(s.cfg.AllowedOrigins))

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/promotions", s.handleDefaultPromotions)
		api.GET("/promotions/:nroRestaurante", s.handleRestaurantPromotions)
		api.POST("/promotions/clicks", s.handleRegisterClick)
		api.POST("/promotions/:nroContenido/click", s.handleRegisterClickByContent)
		api.GET("/restaurants/:nroRestaurante", s.handleRestaurantDetail)
		api.POST("/manual/notify-clicks", s.handleNotifyClicks)
	}
}

// Handler exposes the underlying handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then drains with the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  config.GetDuration(s.cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(s.cfg.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.Info("http server started", map[string]interface{}{
		"port": s.cfg.Port,
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(s.cfg.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware allows the configured browser origins. Preflight requests
// are answered here and never reach the handlers.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
