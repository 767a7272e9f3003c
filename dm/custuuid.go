package dm

import (
	"iter"

	bluetooth "github.com/ProjectEverest/android-packages-modules-Bluetooth"
)

// NumCustomUUID is the number of custom service UUIDs that can be
// registered at once. Eight 128-bit UUIDs take 130 of the 240 EIR bytes,
// leaving room for the local name and the 16-bit service list.
const NumCustomUUID = 8

// CustomUUID is a custom service UUID registered under a caller chosen
// handle. A slot whose UUID is bluetooth.EmptyUUID is unused.
type CustomUUID struct {
	UUID   bluetooth.UUID
	Handle uint32
}

func (c CustomUUID) occupied() bool { return !c.UUID.IsEmpty() }

// CustomUUIDTable is a fixed-size set of custom UUIDs keyed by handle.
// Slots keep their position: removing an entry empties its slot in place and
// a later Add may reuse it.
//
// A CustomUUIDTable is not safe for concurrent use.
type CustomUUIDTable struct {
	slots [NumCustomUUID]CustomUUID
}

// Add registers u under handle. If handle is already registered its UUID is
// replaced in place. Otherwise u takes the first empty slot. If the table is
// full, or handle is 0, or u is empty, Add does nothing and reports false.
func (t *CustomUUIDTable) Add(u bluetooth.UUID, handle uint32) bool {
	if handle == 0 || u.IsEmpty() {
		return false
	}
	if i := t.find(handle); i >= 0 {
		t.slots[i].UUID = u
		return true
	}
	for i := range t.slots {
		if !t.slots[i].occupied() {
			t.slots[i] = CustomUUID{UUID: u, Handle: handle}
			return true
		}
	}
	return false
}

// Remove empties the slot registered under handle and reports whether there
// was one.
func (t *CustomUUIDTable) Remove(handle uint32) bool {
	i := t.find(handle)
	if i < 0 {
		return false
	}
	t.slots[i].UUID = bluetooth.EmptyUUID
	return true
}

func (t *CustomUUIDTable) find(handle uint32) int {
	if handle == 0 {
		return -1
	}
	for i, s := range t.slots {
		if s.occupied() && s.Handle == handle {
			return i
		}
	}
	return -1
}

// All returns the occupied slots in slot order.
// The sequence reads the table as it is when iterated and may be iterated
// again.
func (t *CustomUUIDTable) All() iter.Seq[CustomUUID] {
	return func(yield func(CustomUUID) bool) {
		for _, s := range t.slots {
			if !s.occupied() {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// UUIDs returns the occupied UUIDs in slot order.
func (t *CustomUUIDTable) UUIDs() []bluetooth.UUID {
	var uu []bluetooth.UUID
	for s := range t.All() {
		uu = append(uu, s.UUID)
	}
	return uu
}

// Slot returns slot i, which may be empty.
func (t *CustomUUIDTable) Slot(i int) CustomUUID { return t.slots[i] }

// Len returns the number of occupied slots.
func (t *CustomUUIDTable) Len() int {
	n := 0
	for range t.All() {
		n++
	}
	return n
}

// Cap returns the number of slots.
func (t *CustomUUIDTable) Cap() int { return len(t.slots) }
