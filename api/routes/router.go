// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ticketing/internal/events"
	"ticketing/internal/notifications"
	"ticketing/internal/orders"
	"ticketing/internal/promos"
	"ticketing/internal/reporting"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/shared/memstore"
	"ticketing/internal/waitlist"
	"ticketing/pkg/cache"
	"ticketing/pkg/metrics"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher notifications.Publisher
	enqueuer  reporting.Enqueuer

	reportService reporting.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher) *Router {
	return &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
	}
}

// SetEnqueuer routes report rebuild requests through the job queue
func (r *Router) SetEnqueuer(enqueuer reporting.Enqueuer) {
	r.enqueuer = enqueuer
}

// ReportingService is available once SetupRoutes has run
func (r *Router) ReportingService() reporting.Service {
	return r.reportService
}

type repositories struct {
	events   events.Repository
	seats    seats.Repository
	promos   promos.Repository
	waitlist waitlist.Repository
	orders   orders.Repository
	reports  reporting.Repository
}

func (r *Router) buildRepositories() repositories {
	if r.config.UsesMemoryStore() {
		store := memstore.New()
		return repositories{
			events:   store.Events(),
			seats:    store.Seats(),
			promos:   store.Promos(),
			waitlist: store.Waitlist(),
			orders:   store.Orders(),
			reports:  store.Reports(),
		}
	}

	pg := r.db.GetPostgreSQL()
	return repositories{
		events:   events.NewRepository(pg),
		seats:    seats.NewRepository(pg),
		promos:   promos.NewRepository(pg),
		waitlist: waitlist.NewRepository(pg),
		orders:   orders.NewRepository(pg),
		reports:  reporting.NewRepository(pg),
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	repos := r.buildRepositories()

	eventService := events.NewService(repos.events)
	seatService := seats.NewService(repos.seats)
	promoService := promos.NewService(repos.promos)
	waitlistService := waitlist.NewService(repos.waitlist, eventService)
	orderService := orders.NewService(repos.orders, eventService, seatService, waitlistService, promoService)
	r.reportService = reporting.NewService(repos.reports, eventService)

	if r.db.Redis != nil {
		cacheService := cache.NewService(r.db.Redis)
		eventService.SetCacheService(cacheService)
		eventService.SetCacheTTL(r.config.Redis.CacheTTL)
		seatService.SetCacheService(cacheService)
		seatService.SetCacheTTL(r.config.Redis.SeatMapTTL)
		r.reportService.SetCacheService(cacheService)
		r.reportService.SetCacheTTL(r.config.Redis.ReportTTL)
	}

	if r.publisher != nil {
		waitlistService.SetDispatcher(notifications.NewDispatcher(waitlistService, r.publisher))
	}

	api := engine.Group(r.config.GetAPIBasePath())
	{
		events.SetupEventRoutes(api, r.config, events.NewController(eventService))
		seats.SetupSeatRoutes(api, seats.NewController(seatService))
		promos.SetupPromoRoutes(api, promos.NewController(promoService))
		waitlist.SetupWaitlistRoutes(api, r.config, waitlist.NewController(waitlistService))
		orders.SetupOrderRoutes(api, r.config, orders.NewController(orderService))
		reporting.SetupReportRoutes(api, r.config, reporting.NewController(r.reportService, r.enqueuer))
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "unhealthy",
				"error":      err.Error(),
				"components": r.db.Status(c.Request.Context()),
				"timestamp":  time.Now(),
				"service":    "ticketing",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketing",
			"store":     r.config.Store.Driver,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})

	if r.config.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
}
