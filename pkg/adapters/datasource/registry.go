package datasource

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
)

var (
	registryMu    sync.RWMutex
	registrations = make(map[AdapterType]Registration)
)

// Register is called by each adapter's init function. Thread-safe for
// concurrent init calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registrations[reg.Info.Type] = reg
}

// Registry exposes the registered adapters to the service layer as an
// explicit dependency rather than a package global.
type Registry struct {
	logger *zap.Logger
}

// NewRegistry creates a registry view over the compiled-in adapters.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{logger: logger}
}

// Loader creates a table loader for the config's adapter type.
func (r *Registry) Loader(cfg Config) (TableLoader, error) {
	registryMu.RLock()
	reg, ok := registrations[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("adapter %q not compiled in: %w", cfg.Type, apperrors.ErrNotFound)
	}
	r.logger.Debug("creating datasource loader", zap.String("adapter", string(cfg.Type)))
	return reg.Factory(cfg)
}

// Adapters lists the compiled-in adapters, sorted by type.
func (r *Registry) Adapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]AdapterInfo, 0, len(registrations))
	for _, reg := range registrations {
		out = append(out, reg.Info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
