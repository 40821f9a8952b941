package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/obsidianwallet/obsidian-wallet-connect/session"
)

const defaultSessionLimit = 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func InitAPIService(address string, walletSession WalletSession, wallet WalletLibrary, feed StateFeed, networkController NetworkController, logger zerolog.Logger) (*APIService, error) {
	logger = logger.With().Str("module", "api").Logger()
	api := &APIService{
		address:           address,
		logger:            logger,
		session:           walletSession,
		wallet:            wallet,
		networkController: networkController,
		events:            NewEventFeed(feed, logger),
	}
	return api, nil
}

func (api *APIService) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), api.requestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/v1/wallet/events"})))

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "HEAD", "OPTIONS", "DELETE"},
		AllowHeaders:    []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	apiv1 := r.Group("/v1")

	wl := apiv1.Group("/wallet")
	wl.GET("/state", api.GetState)
	wl.GET("/connectors", api.ListConnectors)
	wl.POST("/connect", api.Connect)
	wl.POST("/disconnect", api.Disconnect)
	wl.POST("/switch_chain", api.SwitchChain)
	wl.GET("/target", api.GetTarget)
	wl.GET("/sessions", api.ListSessions)
	wl.DELETE("/sessions", api.ClearSessions)
	wl.GET("/events", api.Events)

	nw := apiv1.Group("/network")
	nw.GET("/list", api.ListNetworks)
	nw.GET("/current", api.GetCurrentNetwork)
	nw.POST("/add", api.AddNetwork)
	nw.POST("/remove", api.RemoveNetwork)
	nw.POST("/switch", api.SelectNetwork)

	return r
}

// Serve blocks until the server stops. A server closed by Shutdown returns nil.
func (api *APIService) Serve() error {
	api.logger.Info().Str("address", api.address).Msg("initiating api-service...")
	api.lock.Lock()
	api.server = &http.Server{
		Addr:    api.address,
		Handler: api.Handler(),
	}
	server := api.server
	api.lock.Unlock()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (api *APIService) Shutdown(ctx context.Context) error {
	api.events.Close()
	api.lock.Lock()
	server := api.server
	api.lock.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (api *APIService) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		api.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (api *APIService) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, resultResponse{Result: api.session.View()})
}

func (api *APIService) ListConnectors(c *gin.Context) {
	c.JSON(http.StatusOK, resultResponse{Result: api.wallet.Connectors()})
}

func (api *APIService) Connect(c *gin.Context) {
	if err := api.session.Connect(c.Request.Context()); err != nil {
		api.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: api.session.View()})
}

func (api *APIService) Disconnect(c *gin.Context) {
	if err := api.session.Disconnect(c.Request.Context()); err != nil {
		api.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: api.session.View()})
}

func (api *APIService) SwitchChain(c *gin.Context) {
	result, err := api.session.SwitchToTargetChain(c.Request.Context())
	if err != nil {
		api.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: result})
}

// GetTarget returns the chain switch_chain moves the wallet to.
func (api *APIService) GetTarget(c *gin.Context) {
	c.JSON(http.StatusOK, resultResponse{Result: api.session.Target()})
}

func (api *APIService) ClearSessions(c *gin.Context) {
	if err := api.wallet.ClearSessions(); err != nil {
		api.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: "ok"})
}

func (api *APIService) ListSessions(c *gin.Context) {
	limit := defaultSessionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	records, err := api.wallet.ListSessions(limit)
	if err != nil {
		api.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: records})
}

// Events upgrades to a websocket and streams store snapshots until the client
// goes away.
func (api *APIService) Events(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := api.events.AddClient(conn)
	defer api.events.RemoveClient(client)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (api *APIService) abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		api.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrConnectorNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrConnectFailed),
		errors.Is(err, session.ErrDisconnectFailed),
		errors.Is(err, session.ErrChainSwitchFailed),
		errors.Is(err, session.ErrChainAddFailed):
		return http.StatusBadGateway
	}
	if status, ok := networkStatusFor(err); ok {
		return status
	}
	return http.StatusInternalServerError
}
