package handlers

import (
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

type OrderHandler struct {
	Orders *orders.Manager
}

func NewOrderHandler(server *servers.Server) *OrderHandler {
	return &OrderHandler{Orders: server.Orders}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var request dtos.CreateOrderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := orders.CreateOrderInput{
		ServiceName:  request.ServiceName,
		Provider:     request.Provider,
		DeployerKind: entities.DeployerKind(request.DeployerKind),
		TaskType:     entities.TaskType(request.TaskType),
		RequestBody:  datatypes.JSON(request.RequestBody),
		UserID:       request.UserID,
	}
	if request.ServiceID != "" {
		serviceID, err := uuid.Parse(request.ServiceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid serviceId"})
			return
		}
		input.ServiceID = serviceID
	}
	if request.OriginalServiceID != "" {
		originalID, err := uuid.Parse(request.OriginalServiceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid originalServiceId"})
			return
		}
		input.OriginalServiceID = &originalID
	}

	order, err := h.Orders.CreateOrder(c.Request.Context(), input)
	if err != nil {
		status := rejectionStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dtos.CreateOrderResponse{
		OrderID:   order.ID,
		ServiceID: order.ServiceID,
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.Orders.GetOrder(orderID)
	if errors.Is(err, entities.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dtos.OrderResponseFromEntity(order))
}

func (h *OrderHandler) GetServiceOrders(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
		return
	}

	list, err := h.Orders.GetServiceOrders(serviceID)
	if errors.Is(err, entities.ErrServiceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]dtos.OrderResponse, 0, len(list))
	for _, order := range list {
		responses = append(responses, dtos.OrderResponseFromEntity(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": responses})
}

func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, entities.ErrServiceBusy):
		return http.StatusConflict
	case errors.Is(err, entities.ErrOrderRejected):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrServiceNotFound), errors.Is(err, entities.ErrOrderNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
