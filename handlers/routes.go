package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/florist_backend/middlewares"
	"github.com/mmdatafocus/florist_backend/models"
	"github.com/mmdatafocus/florist_backend/utils"
)

// Services are the domain services the routes call into. Fields are read per request,
// so they may be filled in after RegisterRoutes as long as that happens before traffic is let through.
type Services struct {
	Sales  *models.SaleService
	Ledger *models.StockLedger
	// RateLimit runs ahead of every /api route when set.
	RateLimit gin.HandlerFunc
}

func (svc *Services) rateLimit(c *gin.Context) {
	if svc.RateLimit == nil {
		c.Next()
		return
	}
	svc.RateLimit(c)
}

// RegisterRoutes mounts the /api routes. Every route requires an authenticated caller,
// so AuthMiddleware must run before them.
func RegisterRoutes(r gin.IRouter, svc *Services) {
	utils.RegisterBindingValidations()

	api := r.Group("/api", svc.rateLimit, middlewares.RequireAuthentication())

	sales := api.Group("/sales")
	sales.POST("", middlewares.IdempotencyKeyMiddleware(), recordSaleHandler(svc))
	sales.GET("", listRecentSalesHandler(svc))
	sales.GET("/export", exportRecentSalesHandler(svc))

	flowers := api.Group("/flowers")
	flowers.GET("", listFlowersHandler())
	flowers.POST("", createFlowerHandler())
	flowers.GET("/:id", getFlowerHandler())
	flowers.PUT("/:id", updateFlowerHandler())
	flowers.GET("/:id/movements", flowerMovementsHandler(svc))

	suppliers := api.Group("/suppliers")
	suppliers.GET("", listSuppliersHandler())
	suppliers.POST("", createSupplierHandler())
	suppliers.GET("/:id", getSupplierHandler())
	suppliers.PUT("/:id", updateSupplierHandler())

	movements := api.Group("/stock-movements")
	movements.POST("", recordMovementHandler(svc))
	movements.GET("/audit", auditLedgerHandler(svc))
}
