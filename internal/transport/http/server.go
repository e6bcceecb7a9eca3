package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Hub   *core.Hub
	Auth  *auth.Service
	Gate  core.Authenticator
	Users store.UserStore
}

// NewServer builds the HTTP server. The WebSocket endpoint is served by the
// mux directly; gin's writer refuses to hijack after the 101 is written.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler routes /ws to the WebSocket handler and everything else to gin.
func NewHandler(deps Deps, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps.Hub, WSOptions{
		ReadLimit:          cfg.MaxMessageBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigins:     cfg.AllowedOrigins,
	}, logger))
	mux.Handle("/", NewRouter(deps, logger))
	return mux
}

// NewRouter registers the REST routes on a fresh gin engine.
func NewRouter(deps Deps, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := r.Group("/api")

	accounts := NewAPIHandlers(deps.Auth, logger)
	api.POST("/auth/register", accounts.Register)
	api.POST("/auth/login", accounts.Login)

	authed := api.Group("", AuthMiddleware(deps.Gate, logger))
	authed.GET("/me", NewUserHandlers(deps.Users, logger).Me)

	chats := NewChatHandlers(deps.Hub, logger)
	authed.GET("/chats/:id/messages", chats.History)

	admin := authed.Group("/admin", RequireAdmin())
	admin.GET("/user-chats", chats.UserChats)
	admin.GET("/online", chats.Online)

	return r
}
