package docstore

import (
	"github.com/sirupsen/logrus"

	"eve.evalgo.org/docstore/model"
)

// Context bundles the process-wide collaborators a connector otherwise
// reaches for as globals — the model registry and the logger — into one
// explicit value threaded through collections, coercion and the relation
// manager. Nothing in this module reaches for a package-level logger or
// registry; every entry point that needs one takes a *Context.
type Context struct {
	Registry model.Registry
	Logger   logrus.FieldLogger
}

// NewContext builds a Context from a registry and a logger.
func NewContext(registry model.Registry, logger logrus.FieldLogger) *Context {
	return &Context{Registry: registry, Logger: logger}
}
