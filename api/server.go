package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/pixlmixr/minting-service/models"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	srv *http.Server
}

var _ models.Service = &Server{}

func NewRouter(config models.ServerConfig, h *Handlers) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIdMiddleware(), LoggerMiddleware(), CORSMiddleware(config.CORSOrigins))

	mintHandlers := []gin.HandlerFunc{h.Mint}
	if config.RateLimit != "" {
		limit, err := LimiterMiddleware(config.RateLimit)
		if err != nil {
			return nil, err
		}
		mintHandlers = append([]gin.HandlerFunc{limit}, mintHandlers...)
	}

	r.POST("/mint", mintHandlers...)
	r.GET("/verify/:tokenId", h.Verify)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}

func NewServer(config models.ServerConfig, h *Handlers) *Server {
	router, err := NewRouter(config, h)
	if err != nil {
		log.Fatal("[API] Error creating router: ", err)
	}

	return &Server{
		srv: &http.Server{
			Addr:              ":" + config.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Start() {
	log.Info("[API] Listening on ", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("[API] Error serving: ", err)
	}
}

// Stop waits for in-flight requests, including mints, to finish.
func (s *Server) Stop() {
	log.Debug("[API] Stopping server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Error("[API] Error stopping server: ", err)
	}
	log.Info("[API] Server stopped")
}
