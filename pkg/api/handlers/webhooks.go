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

type WebhookHandler struct {
	Orders *orders.Manager
}

func NewWebhookHandler(server *servers.Server) *WebhookHandler {
	return &WebhookHandler{Orders: server.Orders}
}

// Callback receives the asynchronous completion report from a remote
// deployer. Repeated deliveries of the same outcome are acknowledged with
// 200; an unknown correlation token is 404; a delivery that contradicts an
// already-recorded outcome is refused without overwriting the record.
func (h *WebhookHandler) Callback(c *gin.Context) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid correlation token"})
		return
	}

	var request dtos.WebhookRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := entities.Outcome{}
	switch request.Status {
	case "success":
		outcome.Success = true
		outcome.ResultProperties = datatypes.JSON(request.ResultProperties)
	case "failure":
		outcome.Error = request.ErrorDetail
		if outcome.Error == nil {
			outcome.Error = &entities.ErrorDetail{
				Code:    entities.ErrorCodeExecutionFailed,
				Message: "remote deployer reported failure without detail",
			}
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be success or failure"})
		return
	}

	orderID, err := h.Orders.HandleCallback(c.Request.Context(), token, outcome)
	if errors.Is(err, entities.ErrUnknownCorrelation) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, entities.ErrConflictingCompletion) {
		c.JSON(http.StatusConflict, gin.H{"error": "outcome conflicts with the recorded completion"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OK", "orderId": orderID})
}
