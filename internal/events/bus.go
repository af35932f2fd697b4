// Package events re-exports the platform event bus so domain modules only
// import internal/events.
package events

import (
	platformevents "franchise_crm/platform/events"
	"franchise_crm/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
