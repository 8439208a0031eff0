package hardware

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and keeps an in-memory copy of every device.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by ID
	cacheMu sync.RWMutex       // Protects cache
	logger  Logger
}

// NewRegistry creates a new device registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		r.cache[devices[i].ID] = devices[i].Clone()
	}

	r.logger.Info("hardware cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID. The result is a copy.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	if d, ok := r.cache[id]; ok {
		r.cacheMu.RUnlock()
		return d.Clone(), nil
	}
	r.cacheMu.RUnlock()

	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[d.ID] = d.Clone()
	r.cacheMu.Unlock()
	return d, nil
}

// FindByName retrieves a device by name. The result is a copy.
func (r *Registry) FindByName(ctx context.Context, name string) (*Device, error) {
	r.cacheMu.RLock()
	for _, d := range r.cache {
		if d.Name == name {
			c := d.Clone()
			r.cacheMu.RUnlock()
			return c, nil
		}
	}
	r.cacheMu.RUnlock()

	return r.repo.FindByName(ctx, name)
}

// ListDevices returns every cached device, sorted by name.
func (r *Registry) ListDevices() []Device {
	r.cacheMu.RLock()
	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		devices = append(devices, *d.Clone())
	}
	r.cacheMu.RUnlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices
}

// ListByClass returns every cached device of class c, sorted by name.
func (r *Registry) ListByClass(c Class) []Device {
	all := r.ListDevices()
	out := all[:0]
	for _, d := range all {
		if d.Class() == c {
			out = append(out, d)
		}
	}
	return out
}

// CreateDevice persists a new device and caches it.
func (r *Registry) CreateDevice(ctx context.Context, dev *Device) error {
	if err := r.repo.Create(ctx, dev); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[dev.ID] = dev.Clone()
	r.cacheMu.Unlock()

	r.logger.Info("hardware device created", "id", dev.ID, "name", dev.Name, "class", dev.Class())
	return nil
}

// UpdateDevice persists changes to a device and refreshes its cache entry.
func (r *Registry) UpdateDevice(ctx context.Context, dev *Device) error {
	if err := r.repo.Update(ctx, dev); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[dev.ID] = dev.Clone()
	r.cacheMu.Unlock()

	r.logger.Info("hardware device updated", "id", dev.ID, "name", dev.Name, "version", dev.Version)
	return nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("hardware device deleted", "id", id)
	return nil
}

// DeviceCount returns the number of cached devices.
func (r *Registry) DeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
