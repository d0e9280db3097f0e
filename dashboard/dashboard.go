package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"flight-sniper/models"
	"flight-sniper/services"
	"flight-sniper/storage"
	"flight-sniper/utils"
)

// Handler serves the price history over HTTP.
type Handler struct {
	store    storage.HistoryStore
	insights *services.InsightService
	logger   *utils.Logger
}

func NewHandler(store storage.HistoryStore, insights *services.InsightService, logger *utils.Logger) *Handler {
	return &Handler{store: store, insights: insights, logger: logger.With("component", "dashboard")}
}

// NewRouter builds the gin engine. An empty corsOrigins list allows any origin.
func NewRouter(h *Handler, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(corsOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/records", h.ListRecords)
		api.DELETE("/records", h.DeleteAll)
		api.GET("/routes/:origin/:destination", h.RouteInsight)
		api.DELETE("/routes/:origin/:destination", h.DeleteRoute)
	}
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListRecords returns every record, or one route's when origin and destination are given.
func (h *Handler) ListRecords(c *gin.Context) {
	origin, destination := c.Query("origin"), c.Query("destination")

	var (
		records []*models.HistoricalRecord
		err     error
	)
	if origin == "" && destination == "" {
		records, err = h.store.ListAll(c.Request.Context())
	} else {
		route, rerr := models.NewRoute(origin, destination)
		if rerr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": rerr.Error()})
			return
		}
		records, err = h.store.ListRoute(c.Request.Context(), route)
	}
	if err != nil {
		h.storeError(c, err)
		return
	}
	if records == nil {
		records = []*models.HistoricalRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// RouteInsight returns the route's dashboard figures. ?target= adds the goal price
// and how far the last readable price is from it.
func (h *Handler) RouteInsight(c *gin.Context) {
	route, ok := h.route(c)
	if !ok {
		return
	}

	var target *decimal.Decimal
	if raw := c.Query("target"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target price"})
			return
		}
		target = &v
	}

	records, err := h.store.ListRoute(c.Request.Context(), route)
	if err != nil {
		h.storeError(c, err)
		return
	}

	insight := h.insights.Generate(route, records)

	// Positive means the last price is still above the goal.
	var deltaToTarget *decimal.Decimal
	if target != nil && insight.LastPrice != nil {
		v := insight.LastPrice.Sub(*target)
		deltaToTarget = &v
	}

	c.JSON(http.StatusOK, gin.H{
		"insight":         insight,
		"target":          target,
		"delta_to_target": deltaToTarget,
	})
}

func (h *Handler) DeleteRoute(c *gin.Context) {
	route, ok := h.route(c)
	if !ok {
		return
	}
	n, err := h.store.DeleteRoute(c.Request.Context(), route)
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.logger.Warn("[dashboard] deleted %d records of %s", n, route)
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) DeleteAll(c *gin.Context) {
	n, err := h.store.DeleteAll(c.Request.Context())
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.logger.Warn("[dashboard] deleted all %d records", n)
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) route(c *gin.Context) (models.Route, bool) {
	route, err := models.NewRoute(c.Param("origin"), c.Param("destination"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Route{}, false
	}
	return route, true
}

func (h *Handler) storeError(c *gin.Context, err error) {
	h.logger.Error("[dashboard] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store unavailable"})
}
