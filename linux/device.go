//go:build linux

package linux

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type device struct {
	fd  int
	rmu *sync.Mutex
	wmu *sync.Mutex
}

func newSocket(n int) (io.ReadWriteCloser, error) {
	if n < 0 || n > 0xFFFF {
		return nil, errors.Errorf("invalid device id %d", n)
	}
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "can't create HCI socket")
	}

	// Use the exclusive user channel (Linux 3.14) when available, and fall
	// back to raw access on older kernels.
	sa := &unix.SockaddrHCI{Dev: uint16(n), Channel: unix.HCI_CHANNEL_USER}
	if err = unix.Bind(fd, sa); err == unix.EINVAL {
		sa = &unix.SockaddrHCI{Dev: uint16(n), Channel: unix.HCI_CHANNEL_RAW}
		err = unix.Bind(fd, sa)
	}
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't bind HCI socket")
	}

	return &device{
		fd:  fd,
		rmu: &sync.Mutex{},
		wmu: &sync.Mutex{},
	}, nil
}

func (d device) Read(b []byte) (int, error) {
	d.rmu.Lock()
	defer d.rmu.Unlock()
	return unix.Read(d.fd, b)
}

func (d device) Write(b []byte) (int, error) {
	d.wmu.Lock()
	defer d.wmu.Unlock()
	return unix.Write(d.fd, b)
}

func (d device) Close() error {
	// Wake up a blocked Read; HCI sockets may not support it.
	unix.Shutdown(d.fd, unix.SHUT_RDWR)
	return unix.Close(d.fd)
}
