package factory

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/model"
)

// WriterFactory creates a writer from its config entry. The full config is
// passed for writers that need shared settings.
type WriterFactory func(def config.WriterDef, cfg *config.Config) (model.Writer, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]WriterFactory)
)

// RegisterWriter registers a writer type. It panics on duplicate names, so it
// is meant to be called from init functions.
func RegisterWriter(name string, factory WriterFactory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered returns the known writer types in sorted order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateWriters builds every enabled writer of the config, in file order.
func CreateWriters(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer

	for _, def := range cfg.Writers {
		if !def.Enabled {
			log.Printf("Writer of type '%s' is disabled, skipping.", def.Type)
			continue
		}

		mu.RLock()
		factory, ok := registry[def.Type]
		mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		writer, err := factory(def, cfg)
		if err != nil {
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}
		log.Printf("Created writer of type '%s'", def.Type)
		writers = append(writers, writer)
	}

	return writers, nil
}
