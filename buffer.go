package bluetooth

import "sync"

var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, MaxEIRLength)
		return &b
	},
}

// A Buffer holds an EIR payload on its way to the controller.
//
// A Buffer has exactly one owner at a time. Passing it to a function that
// takes ownership (such as a Writer) transfers it; the previous owner must
// not touch it again. The final owner calls Release on every exit path.
type Buffer struct {
	b *[]byte
}

// NewBuffer returns an empty buffer with room for MaxEIRLength bytes.
func NewBuffer() *Buffer {
	b := bufPool.Get().(*[]byte)
	*b = (*b)[:0]
	return &Buffer{b: b}
}

// Bytes returns the payload. The slice is only valid until Release.
func (b *Buffer) Bytes() []byte {
	if b.b == nil {
		return nil
	}
	return *b.b
}

// Len returns the payload length.
func (b *Buffer) Len() int { return len(b.Bytes()) }

// Free returns the number of bytes that can still be appended.
func (b *Buffer) Free() int { return MaxEIRLength - b.Len() }

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.b == nil }

// Release returns the storage to the pool. Calls after the first are no-ops.
func (b *Buffer) Release() {
	if b.b == nil {
		return
	}
	bufPool.Put(b.b)
	b.b = nil
}

func (b *Buffer) append(p ...byte) {
	*b.b = append(*b.b, p...)
}
