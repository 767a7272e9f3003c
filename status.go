package bluetooth

import "fmt"

// Status is the result of a request made to the controller.
type Status uint8

const (
	Success         Status = 0 // Command succeeded
	CmdStarted      Status = 1 // Command started OK; result will be delivered later
	Busy            Status = 2 // Device busy with another command
	NoResources     Status = 3 // No resources to issue command
	ModeUnsupported Status = 4 // Request for 1 or more unsupported modes
	IllegalValue    Status = 5 // Illegal parameter value
	WrongMode       Status = 6 // Device in wrong mode for request
	Unknown         Status = 7 // Controller reported an unrecognised failure
)

var statusName = map[Status]string{
	Success:         "Success",
	CmdStarted:      "CmdStarted",
	Busy:            "Busy",
	NoResources:     "NoResources",
	ModeUnsupported: "ModeUnsupported",
	IllegalValue:    "IllegalValue",
	WrongMode:       "WrongMode",
	Unknown:         "Unknown",
}

func (s Status) String() string {
	if n, ok := statusName[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// OK reports whether s means the request was accepted.
func (s Status) OK() bool { return s == Success || s == CmdStarted }
