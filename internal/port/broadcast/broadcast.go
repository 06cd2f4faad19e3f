// Package broadcast defines the port for delivering real-time events to
// subscribers of a run's room.
package broadcast

import "context"

// Broadcaster sends a typed event to every subscriber of one room.
type Broadcaster interface {
	// ToRoom delivers an event of the given type to the room's
	// subscribers. Delivery is best effort; slow or dead connections
	// are dropped, never block the caller.
	ToRoom(ctx context.Context, room, eventType string, payload []byte)
}
