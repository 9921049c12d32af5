// Package metrics holds the Prometheus plumbing shared by the assistant's components.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector exported by the assistant.
const Namespace = "assist"

// Register registers c on reg. If an equal collector is already registered,
// the existing one is returned so several components can share a registry.
// A nil reg uses the default registerer.
func Register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// MustRegister is like Register but panics on error.
func MustRegister[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	got, err := Register(reg, c)
	if err != nil {
		panic(err)
	}
	return got
}
