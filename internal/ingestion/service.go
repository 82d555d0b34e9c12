package ingestion

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-lab/pulse-reports/internal/transport/channel"
)

type Service struct {
	bus              *channel.EventBus
	maxBodySizeBytes int
}

func NewService(bus *channel.EventBus, maxBodySizeMB int) *Service {
	if bus == nil {
		panic("ingestion: bus must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		bus:              bus,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.IngestHandler)
}
