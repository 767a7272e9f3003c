// Package linux writes Extended Inquiry Response data to a Bluetooth
// controller through an HCI socket.
package linux

import (
	"fmt"
	"io"
	"sync"

	bluetooth "github.com/ProjectEverest/android-packages-modules-Bluetooth"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HCI is a host controller interface.
// It implements dm.Writer and dm.NameSource.
type HCI struct {
	d io.ReadWriteCloser
	c *cmd
	e *event

	log        logrus.FieldLogger
	eirWritten func(bluetooth.Status)

	closeOnce sync.Once
	loopDone  chan struct{}
}

// An Option configures an HCI.
type Option func(*HCI)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *HCI) { h.log = l }
}

// EIRWritten sets a function to be called with the controller's answer to
// each EIR write. It runs on the event loop and must not block.
func EIRWritten(f func(bluetooth.Status)) Option {
	return func(h *HCI) { h.eirWritten = f }
}

// Open opens HCI device devID and wraps it with NewHCI.
func Open(devID int, opts ...Option) (*HCI, error) {
	d, err := newSocket(devID)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open hci%d", devID)
	}
	return NewHCI(d, opts...), nil
}

// NewHCI returns an HCI speaking over d, which must deliver one HCI packet
// per Read. The HCI owns d from then on.
func NewHCI(d io.ReadWriteCloser, opts ...Option) *HCI {
	h := &HCI{
		d:        d,
		log:      logrus.StandardLogger(),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.c = newCmd(d, h.log)
	h.e = newEvent(h.log)
	h.e.handleEvent(commandComplete, handlerFunc(h.c.handleComplete))
	h.e.handleEvent(commandStatus, handlerFunc(h.c.handleStatus))
	h.e.handleEvent(hardwareError, handlerFunc(h.handleHardwareError))

	go h.mainLoop()
	return h
}

// Close stops the event loop and closes the device. Commands waiting for
// completion fail with ErrClosed.
func (h *HCI) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.c.close()
		err = h.d.Close()
	})
	return err
}

// Done is closed when the event loop has stopped.
func (h *HCI) Done() <-chan struct{} { return h.loopDone }

// Reset resets the controller.
func (h *HCI) Reset() error {
	return h.c.sendAndCheckResp(reset{}, []byte{statusSuccess})
}

// SetInquiryMode sets the inquiry result format. Mode 2 enables extended
// inquiry results, which carry the EIR.
func (h *HCI) SetInquiryMode(mode uint8) error {
	return h.c.sendAndCheckResp(writeInquiryMode{inquiryMode: mode}, []byte{statusSuccess})
}

// WriteEIR sends b to the controller with the Write Extended Inquiry
// Response command. It takes ownership of b and releases it before
// returning. WriteEIR does not wait for the controller: it returns
// bluetooth.CmdStarted once the command is sent, and the outcome is
// logged and passed to the EIRWritten handler.
func (h *HCI) WriteEIR(b *bluetooth.Buffer) bluetooth.Status {
	defer b.Release()

	if b.Len() > eirLen {
		h.log.WithField("len", b.Len()).Warn(bluetooth.ErrEIRTooLong)
		return bluetooth.IllegalValue
	}
	cp := writeExtInquiryResponse{fecRequired: 1}
	copy(cp.eir[:], b.Bytes())

	err := h.c.sendAsync(cp, func(rsp []byte) {
		st := toStatus(statusOf(rsp))
		l := h.log.WithField("status", st)
		if st.OK() {
			l.Debug("eir updated")
		} else {
			l.Warnf("eir update rejected: 0x%02X", statusOf(rsp))
		}
		if h.eirWritten != nil {
			h.eirWritten(st)
		}
	})
	if err != nil {
		h.log.WithError(err).Warn("can't write eir")
		if errors.Cause(err) == ErrClosed {
			return bluetooth.WrongMode
		}
		return bluetooth.NoResources
	}
	return bluetooth.CmdStarted
}

// ReadEIR returns the EIR data the controller currently holds.
func (h *HCI) ReadEIR() ([]byte, error) {
	rsp, err := h.c.send(readExtInquiryResponse{})
	if err != nil {
		return nil, err
	}
	var rp readExtInquiryResponseRP
	if err := rp.unmarshal(rsp); err != nil {
		return nil, errors.Wrap(err, "read eir")
	}
	if rp.status != statusSuccess {
		return nil, &CommandError{Op: uint16(opReadExtInquiryResponse), Status: rp.status}
	}
	return rp.eir[:], nil
}

// ReadLocalName reads the local name from the controller.
func (h *HCI) ReadLocalName() (string, error) {
	rsp, err := h.c.send(readLocalName{})
	if err != nil {
		return "", err
	}
	var rp readLocalNameRP
	if err := rp.unmarshal(rsp); err != nil {
		return "", errors.Wrap(err, "read local name")
	}
	if rp.status != statusSuccess {
		return "", &CommandError{Op: uint16(opReadLocalName), Status: rp.status}
	}
	return rp.name(), nil
}

// LocalName implements dm.NameSource.
func (h *HCI) LocalName() (string, error) { return h.ReadLocalName() }

// WriteLocalName sets the local name. Names longer than 248 bytes are
// truncated.
func (h *HCI) WriteLocalName(name string) error {
	var cp writeLocalName
	copy(cp.localName[:], name)
	return h.c.sendAndCheckResp(cp, []byte{statusSuccess})
}

// ReadInquiryTxPower reads the inquiry response transmit power in dBm.
func (h *HCI) ReadInquiryTxPower() (int8, error) {
	rsp, err := h.c.send(readInqResponseTransmitPowerLevel{})
	if err != nil {
		return 0, err
	}
	var rp readInqResponseTransmitPowerLevelRP
	if err := rp.unmarshal(rsp); err != nil {
		return 0, errors.Wrap(err, "read inquiry tx power")
	}
	if rp.status != statusSuccess {
		return 0, &CommandError{Op: uint16(opReadInqResponseTransmitPowerLevel), Status: rp.status}
	}
	return rp.txPower, nil
}

func (h *HCI) mainLoop() {
	defer close(h.loopDone)
	defer h.c.close()
	b := make([]byte, 4096)
	for {
		n, err := h.d.Read(b)
		if err != nil {
			if err != io.EOF {
				h.log.WithError(err).Debug("hci read loop stopped")
			}
			return
		}
		if n == 0 {
			return
		}
		p := make([]byte, n)
		copy(p, b)
		h.handlePacket(p)
	}
}

func (h *HCI) handlePacket(b []byte) {
	t, b := packetType(b[0]), b[1:]
	var err error
	switch t {
	case typEventPkt:
		err = h.e.dispatch(b)
	case typCommandPkt:
		err = fmt.Errorf("unmanaged cmd packet")
	case typACLDataPkt, typSCODataPkt:
		// Connections are not ours to serve.
	case typVendorPkt:
		err = fmt.Errorf("vendor packet not supported")
	default:
		err = fmt.Errorf("unknown packet type 0x%02X", uint8(t))
	}
	if err != nil {
		h.log.Debugf("hci: %s, [ % X ]", err, b)
	}
}

func (h *HCI) handleHardwareError(b []byte) error {
	var ep hardwareErrorEP
	if err := ep.unmarshal(b); err != nil {
		return err
	}
	h.log.WithField("code", ep.hardwareCode).Error("controller hardware error")
	return nil
}
