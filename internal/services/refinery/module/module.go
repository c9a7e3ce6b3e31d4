// Package module provides the refinery module implementation
package module

import (
	"spinlog/internal/adapters/dataset/chds"
	"spinlog/internal/adapters/dataset/parquetds"
	"spinlog/internal/modkit"
	"spinlog/internal/platform/logger"
	"spinlog/internal/services/refinery/domain"
	"spinlog/internal/services/refinery/ingest"
	"spinlog/internal/services/refinery/service"
)

// Ports defines the refinery module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the refinery module
type Module struct {
	deps  modkit.Deps
	name  string
	ports Ports
}

// New constructs the refinery module. The raw source and the configured
// dataset backend are wired from deps.Cfg unless the caller injects
// overrides via modkit.WithPorts
func New(deps modkit.Deps, mopts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("refinery"),
	}, mopts...)...)

	var in domain.Ports
	if b.Ports != nil {
		p, ok := b.Ports.(domain.Ports)
		if !ok {
			panic("refinery module: expected WithPorts(refinery/domain.Ports)")
		}
		in = p
	}

	opts := FromConfig(deps.Cfg)

	if in.Source == nil {
		in.Source = ingest.NewObjectSource(deps.Objects, opts.RawPrefix)
	}
	if in.Dataset == nil {
		switch opts.Backend {
		case "clickhouse":
			in.Dataset = chds.New(deps.CH, *logger.Named("chds"))
		default:
			in.Dataset = parquetds.New(deps.Objects, opts.RefinedPrefix, *logger.Named("parquetds"))
		}
	}

	svc := service.New(in.Source, in.Dataset, service.Config{
		Workers:          opts.Workers,
		MaxRetries:       opts.MaxRetries,
		RetryBase:        opts.RetryBase,
		ReadTimeout:      opts.ReadTimeout,
		PartitionTimeout: opts.PartitionTimeout,
	})

	m := &Module{deps: deps, name: b.Name}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
