package linux

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type cmdParam interface {
	marshal([]byte)
	opcode() opcode
	len() int
}

func newCmd(d io.Writer, l logrus.FieldLogger) *cmd {
	c := &cmd{
		dev:     d,
		log:     l,
		compc:   make(chan commandCompleteEP),
		statusc: make(chan commandStatusEP),
		quit:    make(chan struct{}),
	}
	go c.processCmdEvents()
	return c
}

type cmdPkt struct {
	op opcode
	cp cmdParam

	// Exactly one of done and fn is set. done receives the return
	// parameters of a synchronous command; fn is called with them for an
	// asynchronous one.
	done chan []byte
	fn   func([]byte)
}

func (c cmdPkt) marshal() []byte {
	b := make([]byte, 1+2+1+c.cp.len())
	b[0] = byte(typCommandPkt)
	binary.LittleEndian.PutUint16(b[1:], uint16(c.op))
	b[3] = byte(c.cp.len())
	c.cp.marshal(b[4:])
	return b
}

type cmd struct {
	dev io.Writer
	log logrus.FieldLogger

	mu   sync.Mutex
	sent []*cmdPkt

	compc   chan commandCompleteEP
	statusc chan commandStatusEP

	quit     chan struct{}
	quitOnce sync.Once
}

func (c *cmd) trace(p *cmdPkt, raw []byte) {
	c.log.WithFields(logrus.Fields{
		"opcode": fmt.Sprintf("0x%04X", uint16(p.op)),
		"plen":   len(raw) - 4,
	}).Debugf("< HCI Command: %s [ % X ]", p.op, raw)
}

func (c *cmd) handleComplete(b []byte) error {
	var ep commandCompleteEP
	if err := ep.unmarshal(b); err != nil {
		return err
	}
	select {
	case c.compc <- ep:
	case <-c.quit:
	}
	return nil
}

func (c *cmd) handleStatus(b []byte) error {
	var ep commandStatusEP
	if err := ep.unmarshal(b); err != nil {
		return err
	}
	select {
	case c.statusc <- ep:
	case <-c.quit:
	}
	return nil
}

// write registers p and sends it to the controller.
func (c *cmd) write(p *cmdPkt) error {
	select {
	case <-c.quit:
		return ErrClosed
	default:
	}
	raw := p.marshal()
	c.trace(p, raw)

	c.mu.Lock()
	c.sent = append(c.sent, p)
	c.mu.Unlock()

	n, err := c.dev.Write(raw)
	if err == nil && n != len(raw) {
		err = errors.New("failed to send whole cmd pkt to HCI socket")
	}
	if err != nil {
		c.forget(p)
		return errors.Wrapf(err, "HCI command %s", p.op)
	}
	return nil
}

func (c *cmd) forget(p *cmdPkt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sent {
		if s == p {
			c.sent = append(c.sent[:i], c.sent[i+1:]...)
			return
		}
	}
}

// send sends cp and waits for its return parameters.
func (c *cmd) send(cp cmdParam) ([]byte, error) {
	p := &cmdPkt{op: cp.opcode(), cp: cp, done: make(chan []byte, 1)}
	if err := c.write(p); err != nil {
		return nil, err
	}
	select {
	case rsp := <-p.done:
		return rsp, nil
	case <-c.quit:
		return nil, ErrClosed
	}
}

// sendAsync sends cp and returns once it is written. fn is called with the
// return parameters from the event loop.
func (c *cmd) sendAsync(cp cmdParam, fn func([]byte)) error {
	return c.write(&cmdPkt{op: cp.opcode(), cp: cp, fn: fn})
}

func (c *cmd) sendAndCheckResp(cp cmdParam, exp []byte) error {
	rsp, err := c.send(cp)
	if err != nil {
		return err
	}
	// Don't care about the response
	if len(exp) == 0 {
		return nil
	}
	// Check the if status is one of the expected value
	if len(rsp) == 0 || !bytes.Contains(exp, rsp[0:1]) {
		return &CommandError{Op: uint16(cp.opcode()), Status: statusOf(rsp)}
	}
	return nil
}

// take removes and returns the oldest outstanding packet for op.
func (c *cmd) take(op uint16) *cmdPkt {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.sent {
		if uint16(p.op) == op {
			c.sent = append(c.sent[:i], c.sent[i+1:]...)
			return p
		}
	}
	return nil
}

func (c *cmd) deliver(p *cmdPkt, rsp []byte) {
	if p.fn != nil {
		p.fn(rsp)
		return
	}
	p.done <- rsp
}

func (c *cmd) processCmdEvents() {
	for {
		select {
		case status := <-c.statusc:
			p := c.take(status.commandOpcode)
			if p == nil {
				c.log.Debugf("can't find the cmdPkt for this CommandStatusEP: %+v", status)
				continue
			}
			c.deliver(p, []byte{status.status})
		case comp := <-c.compc:
			p := c.take(comp.commandOPCode)
			if p == nil {
				c.log.Debugf("can't find the cmdPkt for this CommandCompleteEP: %+v", comp)
				continue
			}
			c.deliver(p, comp.returnParameters)
		case <-c.quit:
			return
		}
	}
}

func (c *cmd) close() {
	c.quitOnce.Do(func() { close(c.quit) })
}

type opcode uint16

func (op opcode) ogf() uint8  { return uint8((uint16(op) & 0xFC00) >> 10) }
func (op opcode) ocf() uint16 { return uint16(op) & 0x03FF }
func (op opcode) String() string {
	if n, ok := opName[op]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X|0x%04X", op.ogf(), op.ocf())
}

const (
	opReset                             = opcode(hostCtl<<10 | 0x0003)
	opWriteLocalName                    = opcode(hostCtl<<10 | 0x0013)
	opReadLocalName                     = opcode(hostCtl<<10 | 0x0014)
	opWriteInquiryMode                  = opcode(hostCtl<<10 | 0x0045)
	opReadExtInquiryResponse            = opcode(hostCtl<<10 | 0x0051)
	opWriteExtInquiryResponse           = opcode(hostCtl<<10 | 0x0052)
	opReadInqResponseTransmitPowerLevel = opcode(hostCtl<<10 | 0x0058)
)

var opName = map[opcode]string{
	opReset:                             "Reset",
	opWriteLocalName:                    "Write Local Name",
	opReadLocalName:                     "Read Local Name",
	opWriteInquiryMode:                  "Write Inquiry Mode",
	opReadExtInquiryResponse:            "Read Extended Inquiry Response",
	opWriteExtInquiryResponse:           "Write Extended Inquiry Response",
	opReadInqResponseTransmitPowerLevel: "Read Inquiry Response Transmit Power Level",
}

// Host Control Commands

// Reset (0x0003)
type reset struct{}

func (c reset) opcode() opcode   { return opReset }
func (c reset) len() int         { return 0 }
func (c reset) marshal(b []byte) {}

// Write Local Name (0x0013)
type writeLocalName struct{ localName [localNameLen]byte }

func (c writeLocalName) opcode() opcode   { return opWriteLocalName }
func (c writeLocalName) len() int         { return localNameLen }
func (c writeLocalName) marshal(b []byte) { copy(b, c.localName[:]) }

// Read Local Name (0x0014)
type readLocalName struct{}

func (c readLocalName) opcode() opcode   { return opReadLocalName }
func (c readLocalName) len() int         { return 0 }
func (c readLocalName) marshal(b []byte) {}

type readLocalNameRP struct {
	status    uint8
	localName [localNameLen]byte
}

func (rp *readLocalNameRP) unmarshal(b []byte) error {
	if len(b) < 1 {
		return errors.New("empty return parameters")
	}
	rp.status = b[0]
	copy(rp.localName[:], b[1:])
	return nil
}

// name returns the local name up to the first NUL.
func (rp *readLocalNameRP) name() string {
	n := bytes.IndexByte(rp.localName[:], 0)
	if n < 0 {
		n = len(rp.localName)
	}
	return string(rp.localName[:n])
}

// Write Inquiry Mode (0x0045)
type writeInquiryMode struct {
	inquiryMode uint8
}

func (c writeInquiryMode) opcode() opcode   { return opWriteInquiryMode }
func (c writeInquiryMode) len() int         { return 1 }
func (c writeInquiryMode) marshal(b []byte) { b[0] = c.inquiryMode }

// Read Extended Inquiry Response (0x0051)
type readExtInquiryResponse struct{}

func (c readExtInquiryResponse) opcode() opcode   { return opReadExtInquiryResponse }
func (c readExtInquiryResponse) len() int         { return 0 }
func (c readExtInquiryResponse) marshal(b []byte) {}

type readExtInquiryResponseRP struct {
	status      uint8
	fecRequired uint8
	eir         [eirLen]byte
}

func (rp *readExtInquiryResponseRP) unmarshal(b []byte) error {
	if len(b) < 2 {
		return errors.Errorf("short return parameters: %d bytes", len(b))
	}
	rp.status, rp.fecRequired = b[0], b[1]
	copy(rp.eir[:], b[2:])
	return nil
}

// Write Extended Inquiry Response (0x0052)
type writeExtInquiryResponse struct {
	fecRequired uint8
	eir         [eirLen]byte
}

func (c writeExtInquiryResponse) opcode() opcode { return opWriteExtInquiryResponse }
func (c writeExtInquiryResponse) len() int       { return 1 + eirLen }
func (c writeExtInquiryResponse) marshal(b []byte) {
	b[0] = c.fecRequired
	copy(b[1:], c.eir[:])
}

// Read Inquiry Response Transmit Power Level (0x0058)
type readInqResponseTransmitPowerLevel struct{}

func (c readInqResponseTransmitPowerLevel) opcode() opcode {
	return opReadInqResponseTransmitPowerLevel
}
func (c readInqResponseTransmitPowerLevel) len() int         { return 0 }
func (c readInqResponseTransmitPowerLevel) marshal(b []byte) {}

type readInqResponseTransmitPowerLevelRP struct {
	status  uint8
	txPower int8
}

func (rp *readInqResponseTransmitPowerLevelRP) unmarshal(b []byte) error {
	if len(b) < 2 {
		return errors.Errorf("short return parameters: %d bytes", len(b))
	}
	rp.status, rp.txPower = b[0], int8(b[1])
	return nil
}
