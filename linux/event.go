package linux

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type eventHandler interface {
	handleEvent([]byte) error
}

type handlerFunc func(b []byte) error

func (f handlerFunc) handleEvent(b []byte) error {
	return f(b)
}

type event struct {
	evtHandlers map[eventCode]eventHandler
	log         logrus.FieldLogger
}

func newEvent(l logrus.FieldLogger) *event {
	return &event{
		evtHandlers: map[eventCode]eventHandler{},
		log:         l,
	}
}

func (e *event) handleEvent(c eventCode, h eventHandler) {
	e.evtHandlers[c] = h
}

func (e *event) dispatch(b []byte) error {
	h := &eventHeader{}
	if err := h.unmarshal(b); err != nil {
		return err
	}
	b = b[2:] // Skip Event Header (uint8 + uint8)
	if f, found := e.evtHandlers[h.code]; found {
		e.log.Debugf("> HCI Event: %s (0x%02X) plen %d: [ % X ]", h.code, uint8(h.code), h.plen, b)
		return f.handleEvent(b)
	}
	e.log.Debugf("> HCI Event: no handler for %s (0x%02X)", h.code, uint8(h.code))
	return nil
}

type eventCode uint8

const (
	commandComplete eventCode = 0x0E
	commandStatus   eventCode = 0x0F
	hardwareError   eventCode = 0x10
)

var evtName = map[eventCode]string{
	commandComplete: "Command Complete",
	commandStatus:   "Command Status",
	hardwareError:   "Hardware Error",
}

func (e eventCode) String() string {
	if n, ok := evtName[e]; ok {
		return n
	}
	return fmt.Sprintf("Event(0x%02X)", uint8(e))
}

type eventHeader struct {
	code eventCode
	plen uint8
}

func (h *eventHeader) unmarshal(b []byte) error {
	if len(b) < 2 {
		return errors.New("malformed header")
	}
	h.code = eventCode(b[0])
	h.plen = b[1]
	if len(b) != 2+int(h.plen) {
		return errors.New("wrong length")
	}
	return nil
}

func (h *eventHeader) String() string {
	return fmt.Sprintf("> HCI Event: %s (0x%02X) plen: %02X", h.code, uint8(h.code), h.plen)
}

// Event Parameters

type commandCompleteEP struct {
	numHCICommandPackets uint8
	commandOPCode        uint16
	returnParameters     []byte
}

func (ep *commandCompleteEP) unmarshal(b []byte) error {
	buf := bytes.NewBuffer(b)
	if err := binary.Read(buf, binary.LittleEndian, &ep.numHCICommandPackets); err != nil {
		return err
	}
	if err := binary.Read(buf, binary.LittleEndian, &ep.commandOPCode); err != nil {
		return err
	}
	ep.returnParameters = buf.Bytes()
	return nil
}

type commandStatusEP struct {
	status               uint8
	numHCICommandPackets uint8
	commandOpcode        uint16
}

func (ep *commandStatusEP) unmarshal(b []byte) error {
	buf := bytes.NewBuffer(b)
	if err := binary.Read(buf, binary.LittleEndian, &ep.status); err != nil {
		return err
	}
	if err := binary.Read(buf, binary.LittleEndian, &ep.numHCICommandPackets); err != nil {
		return err
	}
	return binary.Read(buf, binary.LittleEndian, &ep.commandOpcode)
}

type hardwareErrorEP struct {
	hardwareCode uint8
}

func (ep *hardwareErrorEP) unmarshal(b []byte) error {
	if len(b) < 1 {
		return errors.New("malformed hardware error event")
	}
	ep.hardwareCode = b[0]
	return nil
}
