// Package module provides the collector module implementation
package module

import (
	"spinlog/internal/adapters/spotify"
	"spinlog/internal/modkit"
	"spinlog/internal/services/collector/domain"
	"spinlog/internal/services/collector/service"
)

// Ports defines the collector module ports
type Ports struct {
	Collector domain.CollectorPort
}

// Module implements the collector module
type Module struct {
	deps  modkit.Deps
	name  string
	ports Ports
}

// New constructs the collector module. The Spotify client is wired from
// deps.Cfg unless the caller injects a Fetcher via modkit.WithPorts
func New(deps modkit.Deps, mopts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("collector"),
	}, mopts...)...)

	var in domain.Ports
	if b.Ports != nil {
		p, ok := b.Ports.(domain.Ports)
		if !ok {
			panic("collector module: expected WithPorts(collector/domain.Ports)")
		}
		in = p
	}

	opts := FromConfig(deps.Cfg)

	if in.Fetcher == nil {
		in.Fetcher = spotify.NewClient(spotify.Options{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RefreshToken: opts.RefreshToken,
			Timeout:      opts.Timeout,
			MaxRetries:   opts.MaxRetries,
			RetryBase:    opts.RetryBase,
		})
	}

	svc := service.New(in.Fetcher, deps.Objects, service.Config{
		Limit:          opts.Limit,
		RawPrefix:      opts.RawPrefix,
		SnapshotPrefix: opts.SnapshotPrefix,
	})

	m := &Module{deps: deps, name: b.Name}
	m.ports = Ports{Collector: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
