//go:build !linux

package linux

import (
	"io"

	"github.com/pkg/errors"
)

func newSocket(n int) (io.ReadWriteCloser, error) {
	return nil, errors.New("HCI sockets are only supported on Linux")
}
