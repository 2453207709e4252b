package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stackforge/orderhub-backend/pkg/api/dtos"
	"github.com/stackforge/orderhub-backend/pkg/api/servers"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
	"github.com/stackforge/orderhub-backend/pkg/orders"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ServiceHandler struct {
	Orders *orders.Manager
}

func NewServiceHandler(server *servers.Server) *ServiceHandler {
	return &ServiceHandler{Orders: server.Orders}
}

func (h *ServiceHandler) GetAllServices(c *gin.Context) {
	services, err := h.Orders.GetAllServices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	responses := make([]dtos.ServiceResponse, 0, len(services))
	for _, service := range services {
		responses = append(responses, dtos.ServiceResponseFromEntity(service))
	}
	c.JSON(http.StatusOK, gin.H{"services": responses})
}

func (h *ServiceHandler) GetService(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
		return
	}

	service, err := h.Orders.GetService(serviceID)
	if errors.Is(err, entities.ErrServiceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dtos.ServiceResponseFromEntity(service))
}

// UpdateLock records the new administrative lock flags as a LockChange
// order, so the change shows up in the service's order history like any
// other mutation.
func (h *ServiceHandler) UpdateLock(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
		return
	}

	var request dtos.UpdateLockRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := json.Marshal(entities.LockConfig{
		DestroyDisabled: request.DestroyDisabled,
		ModifyDisabled:  request.ModifyDisabled,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.CreateOrder(c.Request.Context(), orders.CreateOrderInput{
		ServiceID:   serviceID,
		TaskType:    entities.TaskTypeLockChange,
		RequestBody: datatypes.JSON(body),
		UserID:      request.UserID,
	})
	if err != nil {
		c.JSON(rejectionStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dtos.CreateOrderResponse{
		OrderID:   order.ID,
		ServiceID: order.ServiceID,
	})
}
