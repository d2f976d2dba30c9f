package handlers

import (
	"github.com/chimera-systems/chimera/internal/analytics"
	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/history"
	"github.com/chimera-systems/chimera/internal/registry"
	"github.com/chimera-systems/chimera/internal/rootcause"
	"github.com/chimera-systems/chimera/internal/slotracker"
)

// Context holds the dependencies HTTP handlers read from, injected by
// the server at startup.
type Context struct {
	Registry  *registry.Registry
	History   *history.Store
	Analytics *analytics.Service
	RootCause *rootcause.Correlator
	SLOs      *slotracker.Tracker
	Policy    domain.Policy
}

// DefaultContext is the global handler context, set once by the server
// during initialization.
var DefaultContext *Context

// SetContext installs the default handler context.
func SetContext(ctx *Context) {
	DefaultContext = ctx
}

// GetContext returns the default handler context, or nil if unset.
func GetContext() *Context {
	return DefaultContext
}
