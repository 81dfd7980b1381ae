package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/florist_backend/models"
	"github.com/mmdatafocus/florist_backend/models/reports"
	"github.com/mmdatafocus/florist_backend/utils"
)

const ReplayHeader = "Idempotent-Replay"

func recordSaleHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSale
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		if key, ok := utils.GetIdempotencyKeyFromContext(c.Request.Context()); ok {
			input.IdempotencyKey = key
		}

		sale, replayed, err := svc.Sales.RecordSale(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		if replayed {
			c.Header(ReplayHeader, "true")
			c.JSON(http.StatusOK, sale)
			return
		}
		c.JSON(http.StatusCreated, sale)
	}
}

func listRecentSalesHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitParam(c)
		if !ok {
			return
		}
		result, err := svc.Sales.ListRecentSales(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func exportRecentSalesHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitParam(c)
		if !ok {
			return
		}
		result, err := svc.Sales.ListRecentSales(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}

		filename := fmt.Sprintf("sales-%s.xlsx", time.Now().UTC().Format("20060102"))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Status(http.StatusOK)
		if err := reports.WriteSalesWorkbook(c.Writer, result); err != nil {
			// headers already sent
			_ = c.Error(err)
		}
	}
}

// limitParam reads ?limit=. A missing value means the default page size.
func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		invalidParam(c, "limit", fmt.Errorf("must be an integer"))
		return 0, false
	}
	return limit, true
}
