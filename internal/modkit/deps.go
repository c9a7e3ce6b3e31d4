// Package modkit provides module wiring and core deps
package modkit

import (
	"spinlog/internal/platform/config"
	"spinlog/internal/platform/logger"
	"spinlog/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf

	// Objects is the object storage seam, nil when a module runs storage free
	Objects store.Objects

	// CH is the clickhouse seam, nil unless the columnar backend is selected
	CH store.Clickhouse
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
