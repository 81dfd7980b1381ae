package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/florist_backend/models"
	"github.com/mmdatafocus/florist_backend/utils"
)

// respondError writes the error envelope for err and records it on the gin context for the error logger.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		validation   *models.ValidationError
		notFound     *models.NotFoundError
		insufficient *models.InsufficientStockError
	)
	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Error(), "code": models.ErrorKind(err)}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error(), "code": models.ErrorKind(err)})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":       insufficient.Error(),
			"code":        models.ErrorKind(err),
			"flower_id":   insufficient.FlowerId,
			"flower_name": insufficient.FlowerName,
			"requested":   insufficient.Requested,
			"available":   insufficient.Available,
			"shortfall":   insufficient.Shortfall(),
		})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": "storage_fault"})
	}
}

// respondBindError reports a request body that could not be decoded or failed its binding tags.
func respondBindError(c *gin.Context, err error) {
	_ = c.Error(err)
	body := gin.H{"error": "invalid request: " + err.Error(), "code": "validation"}
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		body["fields"] = fields
	}
	c.JSON(http.StatusBadRequest, body)
}

func invalidParam(c *gin.Context, name string, err error) {
	respondError(c, &models.ValidationError{Field: name, Message: err.Error()})
}
