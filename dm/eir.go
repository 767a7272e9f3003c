package dm

import (
	bluetooth "github.com/ProjectEverest/android-packages-modules-Bluetooth"
	"github.com/sirupsen/logrus"
)

// UpdateCustomUUID adds entry to, or removes entry.Handle from, the custom
// UUID table and then rewrites the EIR.
//
// A full table and an unknown handle are not errors: the table is left
// unchanged and the EIR is rewritten all the same. A failed write is
// reported through EIRWriteFailed and is not retried; the table keeps the
// update and the next rewrite announces it.
func (c *Context) UpdateCustomUUID(entry CustomUUID, adding bool) {
	l := c.log.WithFields(logrus.Fields{
		"handle": entry.Handle,
		"uuid":   entry.UUID,
	})
	if adding {
		if c.customUUIDs.Add(entry.UUID, entry.Handle) {
			l.Debug("custom uuid added")
		} else {
			l.Debug("custom uuid dropped")
		}
	} else {
		if c.customUUIDs.Remove(entry.Handle) {
			l.Debug("custom uuid removed")
		} else {
			l.Debug("custom uuid not registered")
		}
	}
	c.SetEIR()
}

// Register adds every entry and rewrites the EIR once.
func (c *Context) Register(entries ...CustomUUID) {
	for _, e := range entries {
		if !c.customUUIDs.Add(e.UUID, e.Handle) {
			c.log.WithFields(logrus.Fields{
				"handle": e.Handle,
				"uuid":   e.UUID,
			}).Debug("custom uuid dropped")
		}
	}
	c.SetEIR()
}

// SetEIR builds the EIR from the current state and hands it to the Writer.
func (c *Context) SetEIR() {
	b := c.buildEIR()
	n := b.Len()

	// b belongs to the writer from here on.
	st := c.writer.WriteEIR(b)

	c.eirWrites++
	c.lastEIRStatus = st
	if st.OK() {
		c.log.WithFields(logrus.Fields{"len": n, "status": st}).Debug("eir written")
		return
	}
	c.eirWriteFailures++
	c.log.WithField("status", st).Warn("eir write failed")
	if c.eirWriteFailed != nil {
		c.eirWriteFailed(st)
	}
}

func (c *Context) buildEIR() *bluetooth.Buffer {
	e := &bluetooth.EIRBuilder{
		LocalName:        c.localName(),
		MinNameLen:       c.cfg.MinNameLen,
		Custom:           c.customUUIDs.UUIDs(),
		TxPower:          c.cfg.InqTxPower,
		Flags:            c.cfg.Flags,
		ManufacturerData: c.cfg.ManufacturerData,
	}
	e.Services, e.ServicesComplete = c.services.EIRServices(bluetooth.MaxEIRLength / 2)
	return e.Build()
}

func (c *Context) localName() string {
	if c.names == nil {
		return c.cfg.LocalName
	}
	name, err := c.names.LocalName()
	if err != nil {
		c.log.WithError(err).Warn("can't read local name")
		return c.cfg.LocalName
	}
	return name
}
