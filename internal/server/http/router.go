package http

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/server/http/middleware"
)

// RouterDeps — зависимости HTTP-маршрутизатора.
type RouterDeps struct {
	Orders       *OrderHandler
	Stock        *StockHandler
	Idempotency  domain.IdempotencyRepository
	Logger       *log.Entry
	DebugLogging bool
}

// NewRouter собирает gin-движок со всеми маршрутами API.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.DebugLogging {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	api := router.Group("/api/v1")
	if deps.Idempotency != nil {
		api.Use(middleware.Idempotency(deps.Idempotency, deps.Logger))
	}

	orders := api.Group("/orders")
	{
		orders.POST("", deps.Orders.Create)
		orders.GET("", deps.Orders.List)
		orders.GET("/stats", deps.Orders.Stats)
		orders.GET("/:id", deps.Orders.Get)
		orders.PUT("/:id/items", deps.Orders.EditItems)
		orders.POST("/:id/status", deps.Orders.Transition)
		orders.POST("/:id/return", deps.Orders.ResolveReturn)
		orders.POST("/:id/payment-status", deps.Orders.SetPaymentStatus)
		orders.POST("/:id/verification", deps.Orders.LogVerification)
		orders.GET("/:id/verification", deps.Orders.ListVerification)
	}

	stock := api.Group("/stock")
	{
		stock.POST("/adjust", deps.Stock.Adjust)
		stock.POST("/receive", deps.Stock.ReceivePurchaseOrder)
		stock.GET("/:productId", deps.Stock.Level)
		stock.GET("/:productId/ledger", deps.Stock.Ledger)
	}

	return router
}
