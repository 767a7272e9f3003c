// Package bluez reads adapter properties from bluetoothd over D-Bus.
package bluez

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	service      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
)

// A propertyGetter reads one D-Bus property. *dbus.Object satisfies it.
type propertyGetter interface {
	GetProperty(p string) (dbus.Variant, error)
}

// NameSource reports the alias of a BlueZ adapter as the local name.
// It implements dm.NameSource.
type NameSource struct {
	adapter propertyGetter
	path    dbus.ObjectPath
}

// AdapterPath returns the object path of adapter hciN.
func AdapterPath(devID int) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("/org/bluez/hci%d", devID))
}

// NewNameSource connects to the system bus and returns a NameSource for
// adapter hciN.
func NewNameSource(devID int) (*NameSource, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "can't connect to system bus")
	}
	path := AdapterPath(devID)
	return &NameSource{adapter: conn.Object(service, path), path: path}, nil
}

// LocalName returns the adapter alias, falling back to its name when the
// alias is unset.
func (s *NameSource) LocalName() (string, error) {
	for _, p := range []string{"Alias", "Name"} {
		v, err := s.adapter.GetProperty(adapterIface + "." + p)
		if err != nil {
			return "", errors.Wrapf(err, "%s: can't read %s", s.path, p)
		}
		name, ok := v.Value().(string)
		if !ok {
			return "", errors.Errorf("%s: %s is %s, not a string", s.path, p, v.Signature())
		}
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}
