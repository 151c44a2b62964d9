package http

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/adapters/signal"
	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/config"
	"github.com/bluesea-chat/bluesea/internal/store"
)

const identityKey = "identity"

// AuthMiddleware verifies the bearer token and attaches the identity to
// the request context. Runs for everything except login and health.
func AuthMiddleware(gate auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		ident, err := gate.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is not valid"})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

func identityFrom(c *gin.Context) auth.Identity {
	v, _ := c.Get(identityKey)
	ident, _ := v.(auth.Identity)
	return ident
}

type Deps struct {
	Gate     *auth.TokenGate
	Signal   *signal.Controller
	Rooms    store.RoomRepository
	Messages store.MessageRepository
	CallLogs store.CallLogRepository
}

func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("BlueSeaSession", cookieStore))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "running"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &restHandler{deps: deps}

	api := r.Group("/api")
	api.POST("/auth/login", h.login)

	authed := api.Group("")
	authed.Use(AuthMiddleware(deps.Gate))
	{
		authed.GET("/rooms", h.listRooms)
		authed.POST("/rooms", h.createRoom)
		authed.GET("/rooms/:id/messages", h.roomMessages)
		authed.GET("/calls", h.listCallLogs)
		authed.POST("/calls", h.writeCallLog)
		authed.GET("/ws/signal", func(c *gin.Context) {
			deps.Signal.HandleSignal(c)
		})
	}

	return r
}
