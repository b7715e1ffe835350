package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matapang/platform/libs/shared/logging"
	"github.com/matapang/platform/libs/shared/observability"
	"github.com/matapang/platform/services/gateway/internal/config"
	"github.com/matapang/platform/services/gateway/internal/proxy"
)

// RequestIDHeader carries the correlation id to the upstream services.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestID"

type gateway struct {
	client   *http.Client
	cfg      config.Config
	logger   *zap.Logger
	upstream map[string]string
}

// New constructs the gateway HTTP server.
func New(cfg config.Config, logger *zap.Logger) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           Router(cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Router wires health, metrics, the overview and the /api proxy.
func Router(cfg config.Config, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	gw := &gateway{
		client: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:    cfg,
		logger: logging.OrNop(logger),
		upstream: map[string]string{
			"forms":       cfg.FormServiceURL,
			"submissions": cfg.FormServiceURL,
			"users":       cfg.IdentityServiceURL,
		},
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID, gw.accessLog)
	observability.RegisterMetricsEndpoint(router)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.Any("/api/*path", gw.dispatch)
	return router
}

func (g *gateway) dispatch(c *gin.Context) {
	path := strings.TrimSuffix(c.Param("path"), "/")
	resource := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]

	if resource == "overview" && c.Request.Method == http.MethodGet {
		g.overview(c)
		return
	}
	base, ok := g.upstream[resource]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource"})
		return
	}
	proxy.Forward(c.Writer, c.Request, g.client, base, path)
}

func (g *gateway) overview(c *gin.Context) {
	var forms, submissions, users []map[string]any

	reqID := c.GetString(requestIDKey)
	group, ctx := errgroup.WithContext(c.Request.Context())
	fetch := func(target string, into *[]map[string]any) {
		group.Go(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
			if err != nil {
				return err
			}
			req.Header.Set(RequestIDHeader, reqID)
			items, err := proxy.FetchList(g.client, req)
			if err != nil {
				return err
			}
			*into = items
			return nil
		})
	}
	fetch(g.cfg.FormServiceURL+"/forms", &forms)
	fetch(g.cfg.FormServiceURL+"/submissions", &submissions)
	fetch(g.cfg.IdentityServiceURL+"/users", &users)

	if err := group.Wait(); err != nil {
		g.logger.Warn("gateway: overview failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"forms": gin.H{
				"total":    len(forms),
				"byStatus": countBy(forms, "status"),
			},
			"submissions": gin.H{
				"total":    len(submissions),
				"byStatus": countBy(submissions, "status"),
			},
			"users": gin.H{"total": len(users)},
		},
	})
}

// requestID reuses the caller's X-Request-ID or assigns one. The id is set
// on the inbound request so proxied calls carry it upstream.
func requestID(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}
	c.Request.Header.Set(RequestIDHeader, id)
	c.Set(requestIDKey, id)
	c.Header(RequestIDHeader, id)
	c.Next()
}

func (g *gateway) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	g.logger.Info("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("remote_ip", c.ClientIP()),
		zap.Duration("duration", time.Since(start)))
}

func countBy(items []map[string]any, key string) map[string]int {
	counts := map[string]int{}
	for _, item := range items {
		if value, ok := item[key].(string); ok {
			counts[value]++
		}
	}
	return counts
}
