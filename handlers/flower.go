package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/middlewares"
	"github.com/mmdatafocus/florist_backend/models"
)

func createFlowerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFlower
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		flower, err := models.CreateFlower(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, flower)
	}
}

func updateFlowerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c)
		if !ok {
			return
		}
		var input models.NewFlower
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		flower, err := models.UpdateFlower(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, flower)
	}
}

func getFlowerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c)
		if !ok {
			return
		}
		flower, err := models.GetFlower(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := middlewares.AttachSuppliers(c.Request.Context(), flower); err != nil {
			respondError(c, &models.StorageFault{Op: "load supplier", Err: err})
			return
		}
		c.JSON(http.StatusOK, flower)
	}
}

// listFlowersHandler serves ?low_stock=true for the reorder view.
func listFlowersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lowStockOnly := false
		if raw := c.Query("low_stock"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				invalidParam(c, "low_stock", fmt.Errorf("must be true or false"))
				return
			}
			lowStockOnly = v
		}
		flowers, err := models.GetFlowers(c.Request.Context(), lowStockOnly)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := middlewares.AttachSuppliers(c.Request.Context(), flowers...); err != nil {
			respondError(c, &models.StorageFault{Op: "load suppliers", Err: err})
			return
		}
		c.JSON(http.StatusOK, flowers)
	}
}

func uuidParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		invalidParam(c, "id", fmt.Errorf("must be a uuid"))
		return uuid.Nil, false
	}
	return id, true
}
