package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/florist_backend/models"
)

func recordMovementHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStockMovement
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		movement, err := svc.Ledger.RecordMovement(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, movement)
	}
}

func flowerMovementsHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c)
		if !ok {
			return
		}
		limit, ok := limitParam(c)
		if !ok {
			return
		}
		movements, err := svc.Ledger.Movements(c.Request.Context(), id, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, movements)
	}
}

func auditLedgerHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		mismatches, err := svc.Ledger.Audit(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"consistent": len(mismatches) == 0,
			"mismatches": mismatches,
		})
	}
}
