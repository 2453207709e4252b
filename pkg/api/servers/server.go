package servers

import (
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
	"github.com/stackforge/orderhub-backend/pkg/orders"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const TraceIDHeader = "X-Trace-Id"

type Server struct {
	Router     *gin.Engine
	PostgresDB *gorm.DB
	Orders     *orders.Manager
}

func (s *Server) Start(port string) error {
	return s.Router.Run(":" + port)
}

func (s *Server) Use(middleware gin.HandlerFunc) {
	s.Router.Use(middleware)
}

func NewServer(db *gorm.DB, manager *orders.Manager) *Server {
	app := gin.Default()
	app.Use(traceMiddleware())

	return &Server{
		Router:     app,
		PostgresDB: db,
		Orders:     manager,
	}
}

// traceMiddleware attaches a trace id to every request context so order
// logs correlate end to end. An id supplied by the caller is honored.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := entities.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}
