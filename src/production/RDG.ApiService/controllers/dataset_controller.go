package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	config "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Config"
	logger "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Logger"
	"gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.ApiService/services"
)

// DatasetController handles dataset and reading query requests
type DatasetController struct {
	service *services.ReadingService
	apiCfg  config.APIConfig
	logger  *logger.Logger
}

// NewDatasetController creates a new dataset controller
func NewDatasetController(service *services.ReadingService, apiCfg config.APIConfig, logger *logger.Logger) *DatasetController {
	return &DatasetController{
		service: service,
		apiCfg:  apiCfg,
		logger:  logger,
	}
}

// RegisterRoutes registers the dataset routes with Gin
func (c *DatasetController) RegisterRoutes(router *gin.Engine) {
	datasets := router.Group("/v1/thing/:deviceId/dataset")
	{
		datasets.GET("", c.ListDatasets)
		datasets.GET("/:id", c.GetDataset)
		datasets.PUT("/:id", c.PutDataset)
		datasets.DELETE("/:id", c.DeleteDataset)
		datasets.GET("/:id/reading", c.GetReadings)
		datasets.GET("/:id/reading_count", c.GetReadingsCount)
	}
}

// UpdateDatasetRequest is the PUT body. The unit may be empty.
type UpdateDatasetRequest struct {
	Type  string `json:"metricType" binding:"required"`
	Label string `json:"label" binding:"required"`
	Unit  string `json:"unit"`
}

func (c *DatasetController) ListDatasets(ctx *gin.Context) {
	deviceID, ok := c.pathUUID(ctx, "deviceId")
	if !ok {
		return
	}

	datasets, err := c.service.ListDatasets(ctx, deviceID)
	if err != nil {
		c.serverError(ctx, err, "failed to list datasets")
		return
	}

	ctx.JSON(http.StatusOK, datasets)
}

func (c *DatasetController) GetDataset(ctx *gin.Context) {
	deviceID, id, ok := c.pathIDs(ctx)
	if !ok {
		return
	}

	dataset, err := c.service.GetDataset(ctx, deviceID, id)
	if err != nil {
		c.datasetError(ctx, err, "failed to get dataset")
		return
	}

	ctx.JSON(http.StatusOK, dataset)
}

func (c *DatasetController) PutDataset(ctx *gin.Context) {
	deviceID, id, ok := c.pathIDs(ctx)
	if !ok {
		return
	}

	var req UpdateDatasetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset, err := c.service.PutDataset(ctx, deviceID, id, req.Type, req.Label, req.Unit)
	if err != nil {
		c.datasetError(ctx, err, "failed to update dataset")
		return
	}

	ctx.JSON(http.StatusOK, dataset)
}

func (c *DatasetController) DeleteDataset(ctx *gin.Context) {
	deviceID, id, ok := c.pathIDs(ctx)
	if !ok {
		return
	}

	if err := c.service.RemoveDataset(ctx, deviceID, id); err != nil {
		c.datasetError(ctx, err, "failed to delete dataset")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *DatasetController) GetReadings(ctx *gin.Context) {
	deviceID, id, ok := c.pathIDs(ctx)
	if !ok {
		return
	}

	params := normalizeReadingQuery(ctx, c.apiCfg.MaxPageLimit)

	readings, err := c.service.GetReadings(ctx, deviceID, id, params)
	if err != nil {
		c.datasetError(ctx, err, "failed to get readings")
		return
	}

	ctx.JSON(http.StatusOK, readings)
}

func (c *DatasetController) GetReadingsCount(ctx *gin.Context) {
	deviceID, id, ok := c.pathIDs(ctx)
	if !ok {
		return
	}

	from := normalizeDate(ctx.Query("startDate"))
	to := normalizeDate(ctx.Query("endDate"))

	count, err := c.service.GetReadingsCount(ctx, deviceID, id, from, to)
	if err != nil {
		c.datasetError(ctx, err, "failed to count readings")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"count": count})
}

func (c *DatasetController) pathUUID(ctx *gin.Context, name string) (string, bool) {
	raw := ctx.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return "", false
	}
	return raw, true
}

func (c *DatasetController) pathIDs(ctx *gin.Context) (deviceID, id string, ok bool) {
	deviceID, ok = c.pathUUID(ctx, "deviceId")
	if !ok {
		return "", "", false
	}
	id, ok = c.pathUUID(ctx, "id")
	if !ok {
		return "", "", false
	}
	return deviceID, id, true
}

func (c *DatasetController) datasetError(ctx *gin.Context, err error, msg string) {
	if errors.Is(err, services.ErrDatasetNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
		return
	}
	c.serverError(ctx, err, msg)
}

func (c *DatasetController) serverError(ctx *gin.Context, err error, msg string) {
	c.logger.ErrorWithError(err, msg)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
