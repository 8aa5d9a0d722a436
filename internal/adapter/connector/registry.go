package connector

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/config"
	"github.com/cwygoda/jobwatch/internal/domain"
)

// Factory builds a fresh connector.
type Factory func() (domain.Connector, error)

// Registry maps platform ids to connector factories. It is filled at
// startup and read-only afterwards.
type Registry struct {
	order     []string
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for platform. Ids are case-insensitive.
func (r *Registry) Register(platform string, f Factory) error {
	id := strings.ToLower(strings.TrimSpace(platform))
	if id == "" {
		return errors.New("platform id is empty")
	}
	if _, ok := r.factories[id]; ok {
		return errors.Newf("platform %q registered twice", id)
	}
	r.order = append(r.order, id)
	r.factories[id] = f
	return nil
}

// Acquire returns a new connector for platform.
func (r *Registry) Acquire(platform string) (domain.Connector, error) {
	f, ok := r.factories[strings.ToLower(platform)]
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnknownPlatform, "%q", platform)
	}
	return f()
}

// Platforms returns the registered ids in registration order.
func (r *Registry) Platforms() []string {
	return append([]string(nil), r.order...)
}

// FromConfig registers a CommandConnector per configured platform.
func FromConfig(cfgs []config.ConnectorConfig) (*Registry, error) {
	r := NewRegistry()
	for _, cc := range cfgs {
		// Validate eagerly so a bad command line fails at startup.
		if _, err := NewCommandConnector(cc); err != nil {
			return nil, err
		}
		err := r.Register(cc.Platform, func() (domain.Connector, error) {
			return NewCommandConnector(cc)
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}
