// Package bluetooth holds the wire vocabulary shared by the device
// management layer and the controller transports: 128-bit service UUIDs,
// the Extended Inquiry Response (EIR) payload codec and the owned buffers
// that carry a payload to the controller.
//
// # EIR
//
// A BR/EDR controller answers inquiries with up to 240 bytes of EIR data:
// a sequence of length/type/value fields carrying the local name, service
// class UUID lists, transmit power and manufacturer data. EIRBuilder lays
// those fields out in a fixed order, shortening the local name and marking
// UUID lists incomplete when the payload runs out of room.
//
// Custom service UUIDs registered by profiles are tracked by package dm,
// which rebuilds the payload with EIRBuilder whenever the set changes and
// hands the resulting Buffer to a controller writer such as linux.HCI.
//
// # OWNERSHIP
//
// A Buffer has a single owner. Whoever receives one from a function that
// transfers ownership must Release it exactly once, on success and failure
// alike.
package bluetooth // import "github.com/ProjectEverest/android-packages-modules-Bluetooth"
