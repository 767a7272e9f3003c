// Package dm implements the device management state that decides what the
// local controller announces in its Extended Inquiry Response.
//
// Profiles register locally defined service UUIDs under an opaque handle
// with Context.UpdateCustomUUID. Every update rebuilds the EIR payload from
// the registered UUIDs and the other configured fields and hands it to a
// Writer.
//
// Context performs no locking. All calls on a Context must be serialized by
// the caller, for instance by running them on a Loop.
package dm

import (
	bluetooth "github.com/ProjectEverest/android-packages-modules-Bluetooth"
	"github.com/sirupsen/logrus"
)

// Writer transmits an EIR payload to the controller.
//
// WriteEIR takes ownership of b and must Release it on every path, whether
// the write succeeds or not.
type Writer interface {
	WriteEIR(b *bluetooth.Buffer) bluetooth.Status
}

// The WriterFunc type is an adapter to allow the use of
// ordinary functions as Writers.
type WriterFunc func(b *bluetooth.Buffer) bluetooth.Status

// WriteEIR calls f(b).
func (f WriterFunc) WriteEIR(b *bluetooth.Buffer) bluetooth.Status { return f(b) }

// DiscardWriter releases every payload without sending it.
var DiscardWriter Writer = WriterFunc(func(b *bluetooth.Buffer) bluetooth.Status {
	b.Release()
	return bluetooth.Success
})

// ServiceSource reports the 16-bit service classes registered locally.
// EIRServices returns at most max of them and whether that is all of them.
type ServiceSource interface {
	EIRServices(max int) (uuids []uint16, complete bool)
}

// ServiceList is a fixed ServiceSource.
type ServiceList []uint16

// EIRServices implements ServiceSource.
func (l ServiceList) EIRServices(max int) ([]uint16, bool) {
	if len(l) > max {
		return l[:max], false
	}
	return l, true
}

// NameSource reports the local device name.
type NameSource interface {
	LocalName() (string, error)
}

// Context is the device management state of one controller.
type Context struct {
	customUUIDs CustomUUIDTable

	cfg      Config
	writer   Writer
	services ServiceSource
	names    NameSource
	log      logrus.FieldLogger

	eirWriteFailed func(bluetooth.Status)

	eirWrites        int
	eirWriteFailures int
	lastEIRStatus    bluetooth.Status
}

// New returns a Context with an empty custom UUID table.
// Without options, payloads are built from an empty Config and discarded.
func New(opts ...Option) *Context {
	c := &Context{
		writer:   DiscardWriter,
		services: ServiceList(nil),
		log:      logrus.StandardLogger(),
	}
	c.Option(opts...)
	return c
}

// Option sets the options specified.
func (c *Context) Option(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// CustomUUIDs returns the custom UUID table. Callers must not modify it
// directly; use UpdateCustomUUID so the change is announced.
func (c *Context) CustomUUIDs() *CustomUUIDTable { return &c.customUUIDs }

// Config returns the current EIR configuration.
func (c *Context) Config() Config { return c.cfg }

// LastEIRStatus returns the status of the most recent EIR write.
func (c *Context) LastEIRStatus() bluetooth.Status { return c.lastEIRStatus }

// EIRWrites returns the number of EIR payloads handed to the Writer.
func (c *Context) EIRWrites() int { return c.eirWrites }

// EIRWriteFailures returns the number of EIR writes that did not succeed.
func (c *Context) EIRWriteFailures() int { return c.eirWriteFailures }
