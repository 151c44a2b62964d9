package signal

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/app/orch"
	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/config"
	"github.com/bluesea-chat/bluesea/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the websocket side of the realtime core: it gates the
// connection once, registers presence and pumps frames both ways.
type Controller struct {
	Orch    *orch.Orchestrator
	Gate    auth.Verifier
	Cfg     *config.Config
	Limiter *RateLimiter
}

func NewController(o *orch.Orchestrator, gate auth.Verifier, cfg *config.Config) *Controller {
	return &Controller{
		Orch:    o,
		Gate:    gate,
		Cfg:     cfg,
		Limiter: NewRateLimiter(20, time.Second),
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func bearerToken(c *gin.Context) string {
	if tok := c.Query("token"); tok != "" {
		return tok
	}
	const prefix = "Bearer "
	if h := c.GetHeader("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// HandleSignal authenticates the credential, upgrades the connection and
// starts the pumps. The gate runs exactly once, before any message is
// processed; a bad credential never reaches the upgrade.
func (ctl *Controller) HandleSignal(c *gin.Context) {
	ident, err := ctl.Gate.Verify(bearerToken(c))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("connection refused")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication error"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("user", string(ident.UserID)).Msg("new WS connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctl.Orch.Connect(ident.UserID, conn)

	go ctl.writePump(conn)
	go ctl.readPump(ident, conn)
}
