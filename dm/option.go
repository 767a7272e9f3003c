package dm

import (
	bluetooth "github.com/ProjectEverest/android-packages-modules-Bluetooth"
	"github.com/sirupsen/logrus"
)

// Option configures a Context.
type Option func(*Context)

// WithWriter sets the Writer EIR payloads are handed to.
func WithWriter(w Writer) Option {
	return func(c *Context) { c.writer = w }
}

// WithServices sets the source of the 16-bit service list.
func WithServices(s ServiceSource) Option {
	return func(c *Context) { c.services = s }
}

// WithNameSource sets where the local name is read from. If the source
// fails, Config.LocalName is used instead.
func WithNameSource(n NameSource) Option {
	return func(c *Context) { c.names = n }
}

// WithConfig sets the EIR configuration.
// Registrations in cfg are not applied; see Context.Register.
func WithConfig(cfg Config) Option {
	return func(c *Context) { c.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Context) { c.log = l }
}

// EIRWriteFailed sets a function to be called when the Writer reports a
// status other than success. The table is left as it is.
func EIRWriteFailed(f func(bluetooth.Status)) Option {
	return func(c *Context) { c.eirWriteFailed = f }
}
