package producer

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
)

// Payload produces the label of each interrupt a peripheral emits.
// A Payload is owned by one peripheral goroutine and need not be safe for
// concurrent use.
type Payload interface {
	Next(rng *rand.Rand) string
}

// PayloadFunc adapts a function to Payload.
type PayloadFunc func(rng *rand.Rand) string

// Next calls f.
func (f PayloadFunc) Next(rng *rand.Rand) string { return f(rng) }

// UARTBytes returns a payload emitting "UART_BYTE:<n>" where n is an 8-bit
// counter starting at 1 and wrapping from 255 to 0.
func UARTBytes() Payload {
	var counter uint8
	return PayloadFunc(func(*rand.Rand) string {
		counter++
		return "UART_BYTE:" + strconv.Itoa(int(counter))
	})
}

// GPIOState returns a payload emitting "GPIO_STATE:true" or
// "GPIO_STATE:false" with equal probability.
func GPIOState() Payload {
	return PayloadFunc(func(rng *rand.Rand) string {
		return "GPIO_STATE:" + strconv.FormatBool(rng.IntN(2) == 1)
	})
}

// FixedLabel returns a payload that always emits label.
func FixedLabel(label string) Payload {
	return PayloadFunc(func(*rand.Rand) string {
		return label
	})
}

// PayloadFactory builds a fresh Payload. The argument is the configured
// label, which only some kinds use.
type PayloadFactory func(label string) (Payload, error)

// Payload kinds registered by default.
const (
	PayloadUART  = "uart"
	PayloadGPIO  = "gpio"
	PayloadLabel = "label"
)

// PayloadRegistry maps payload kind names to factories so configuration
// can refer to generators by name. It is safe for concurrent use.
type PayloadRegistry struct {
	mu        sync.RWMutex
	factories map[string]PayloadFactory
}

// NewPayloadRegistry returns a registry holding the built-in kinds.
func NewPayloadRegistry() *PayloadRegistry {
	r := &PayloadRegistry{factories: make(map[string]PayloadFactory)}
	r.Register(PayloadUART, func(string) (Payload, error) { return UARTBytes(), nil })
	r.Register(PayloadGPIO, func(string) (Payload, error) { return GPIOState(), nil })
	r.Register(PayloadLabel, func(label string) (Payload, error) {
		if label == "" {
			return nil, fmt.Errorf("payload kind %q requires a label", PayloadLabel)
		}
		return FixedLabel(label), nil
	})
	return r
}

// Register adds or replaces the factory for kind.
func (r *PayloadRegistry) Register(kind string, factory PayloadFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Build creates a new payload of the given kind.
func (r *PayloadRegistry) Build(kind, label string) (Payload, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown payload kind %q (known: %v)", kind, r.Kinds())
	}
	return factory(label)
}

// Has reports whether kind is registered.
func (r *PayloadRegistry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kind names, sorted.
func (r *PayloadRegistry) Kinds() []string {
	r.mu.RLock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	r.mu.RUnlock()
	slices.Sort(kinds)
	return kinds
}

var defaultPayloads = NewPayloadRegistry()

// DefaultPayloads returns the process-wide registry used by configuration.
func DefaultPayloads() *PayloadRegistry {
	return defaultPayloads
}
