package linux

import (
	"fmt"

	bluetooth "github.com/ProjectEverest/android-packages-modules-Bluetooth"
	"github.com/pkg/errors"
)

// ErrClosed is returned for commands issued on, or pending when, the HCI is
// closed.
var ErrClosed = errors.New("hci: closed")

// HCI error codes, from the Core specification Vol 1, Part F.
const (
	statusSuccess               = 0x00
	statusUnknownCommand        = 0x01
	statusMemoryCapacity        = 0x07
	statusCommandDisallowed     = 0x0C
	statusRejectedResources     = 0x0D
	statusUnsupportedFeature    = 0x11
	statusInvalidParameters     = 0x12
	statusControllerBusy        = 0x3A
	statusUnknownStatusInternal = 0xFF
)

// CommandError is returned when the controller completes a command with a
// status other than success.
type CommandError struct {
	Op     uint16
	Status uint8
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("HCI command %s returned status 0x%02X", opcode(e.Op), e.Status)
}

func statusOf(rsp []byte) uint8 {
	if len(rsp) == 0 {
		return statusUnknownStatusInternal
	}
	return rsp[0]
}

// toStatus maps an HCI error code onto a controller request status.
func toStatus(s uint8) bluetooth.Status {
	switch s {
	case statusSuccess:
		return bluetooth.Success
	case statusMemoryCapacity, statusRejectedResources:
		return bluetooth.NoResources
	case statusCommandDisallowed:
		return bluetooth.WrongMode
	case statusControllerBusy:
		return bluetooth.Busy
	case statusUnknownCommand, statusUnsupportedFeature:
		return bluetooth.ModeUnsupported
	case statusInvalidParameters:
		return bluetooth.IllegalValue
	}
	return bluetooth.Unknown
}
