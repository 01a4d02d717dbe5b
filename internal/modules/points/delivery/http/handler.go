package handler

import (
	"fmt"
	"net/http"
	"strconv"

	pointsDto "anoa.com/pointboard/internal/modules/points/dto"
	pointsService "anoa.com/pointboard/internal/modules/points/service"
	"anoa.com/pointboard/pkg/apperror"
	"anoa.com/pointboard/pkg/response"
	"anoa.com/pointboard/pkg/validator"
	"github.com/gin-gonic/gin"
)

type PointsHandler struct {
	service pointsService.PointsService
}

func NewPointsHandler(service pointsService.PointsService) *PointsHandler {
	return &PointsHandler{service: service}
}

// RegisterRoutes mounts the points API on group. protect guards the mutating
// routes.
func (h *PointsHandler) RegisterRoutes(group *gin.RouterGroup, protect ...gin.HandlerFunc) {
	group.GET("/:user_id", h.GetTotal)
	group.GET("/:user_id/records", h.ListRecords)

	write := group.Group("", protect...)
	write.POST("", h.AddPoints)
	write.PUT("/records/:id", h.UpdateReason)
	write.DELETE("/:user_id", h.DeleteUser)
}

func (h *PointsHandler) AddPoints(c *gin.Context) {
	var req pointsDto.AddPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, validator.NewValidationError(err))
		return
	}

	resp, err := h.service.AddPoints(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (h *PointsHandler) GetTotal(c *gin.Context) {
	resp, err := h.service.GetTotal(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *PointsHandler) ListRecords(c *gin.Context) {
	records, err := h.service.ListRecords(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (h *PointsHandler) UpdateReason(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid record id", apperror.ErrValidation))
		return
	}

	var req pointsDto.UpdateReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, validator.NewValidationError(err))
		return
	}

	resp, err := h.service.UpdateReason(c.Request.Context(), id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *PointsHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), c.Param("user_id")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
