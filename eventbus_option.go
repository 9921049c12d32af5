package assist

import "github.com/ZanzyTHEbar/dragonscale-assist/internal/eventbus"

// WithEventBus publishes dispatcher lifecycle events to bus. The caller keeps
// ownership of bus and must close it.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(d *Dispatcher) {
		d.eventBus = bus
		d.ownsBus = false
	}
}
