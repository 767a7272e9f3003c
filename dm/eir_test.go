package dm

import (
	"bytes"
	"testing"

	bluetooth "github.com/ProjectEverest/android-packages-modules-Bluetooth"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockWriter records a copy of every payload and releases the buffer.
type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteEIR(b *bluetooth.Buffer) bluetooth.Status {
	p := append([]byte(nil), b.Bytes()...)
	b.Release()
	return m.Called(p).Get(0).(bluetooth.Status)
}

// leakWriter fails without releasing, to check nothing else does.
type leakWriter struct{ bufs []*bluetooth.Buffer }

func (w *leakWriter) WriteEIR(b *bluetooth.Buffer) bluetooth.Status {
	w.bufs = append(w.bufs, b)
	return bluetooth.NoResources
}

type nameFunc func() (string, error)

func (f nameFunc) LocalName() (string, error) { return f() }

func newTestContext(t *testing.T, opts ...Option) (*Context, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return New(append([]Option{WithLogger(l)}, opts...)...), hook
}

func TestUpdateCustomUUID(t *testing.T) {
	c, _ := newTestContext(t)
	tbl := c.CustomUUIDs()

	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, true)
	assert.Equal(t, uuid1.String(), tbl.Slot(0).UUID.String())
	c.UpdateCustomUUID(CustomUUID{uuid2, 2}, true)
	assert.Equal(t, uuid2.String(), tbl.Slot(1).UUID.String())

	c.UpdateCustomUUID(CustomUUID{bluetooth.EmptyUUID, 1}, false)
	assert.Equal(t, bluetooth.EmptyUUID.String(), tbl.Slot(0).UUID.String())
	c.UpdateCustomUUID(CustomUUID{bluetooth.EmptyUUID, 2}, false)
	assert.Equal(t, bluetooth.EmptyUUID.String(), tbl.Slot(1).UUID.String())

	assert.Equal(t, "00112233-4455-6677-8899-aabbccddeeff", uuid1.String())
	assert.Equal(t, "00000000-2222-2222-3333-555555555559", uuid2.String())
	assert.Equal(t, 4, c.EIRWrites())
}

func TestUpdateCustomUUIDWritesOnce(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteEIR", mock.Anything).Return(bluetooth.Success)
	c, _ := newTestContext(t, WithWriter(w))

	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, true)
	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, true)  // same entry again
	c.UpdateCustomUUID(CustomUUID{uuid2, 9}, false) // unknown handle
	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, false)
	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, false) // already removed

	w.AssertNumberOfCalls(t, "WriteEIR", 5)
	assert.Equal(t, 5, c.EIRWrites())
	assert.Equal(t, 0, c.EIRWriteFailures())
	assert.Equal(t, bluetooth.Success, c.LastEIRStatus())
}

func TestUpdateCustomUUIDPayload(t *testing.T) {
	empty := []byte(nil)
	one := append([]byte{0x11, 0x07}, uuid1.LittleEndian()...)
	two := append([]byte{0x21, 0x07}, append(uuid1.LittleEndian(), uuid2.LittleEndian()...)...)
	updated := append([]byte{0x21, 0x07}, append(uuid3.LittleEndian(), uuid2.LittleEndian()...)...)
	last := append([]byte{0x11, 0x07}, uuid2.LittleEndian()...)

	var got [][]byte
	w := &mockWriter{}
	w.On("WriteEIR", mock.Anything).Return(bluetooth.Success).Run(func(args mock.Arguments) {
		got = append(got, args.Get(0).([]byte))
	})
	c, _ := newTestContext(t, WithWriter(w))

	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, true)
	c.UpdateCustomUUID(CustomUUID{uuid2, 2}, true)
	c.UpdateCustomUUID(CustomUUID{uuid3, 1}, true)
	c.UpdateCustomUUID(CustomUUID{uuid3, 1}, false)
	c.UpdateCustomUUID(CustomUUID{uuid2, 2}, false)

	want := [][]byte{one, two, updated, last, empty}
	require.Len(t, got, len(want))
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("write %d: got %x want %x", i, got[i], want[i])
		}
	}
}

func TestUpdateCustomUUIDOverflow(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteEIR", mock.Anything).Return(bluetooth.Success)
	c, _ := newTestContext(t, WithWriter(w))

	for i := 0; i < NumCustomUUID+3; i++ {
		c.UpdateCustomUUID(CustomUUID{testUUID(i), uint32(i + 1)}, true)
	}
	tbl := c.CustomUUIDs()
	require.Equal(t, NumCustomUUID, tbl.Len())
	for i := 0; i < NumCustomUUID; i++ {
		assert.Equal(t, CustomUUID{testUUID(i), uint32(i + 1)}, tbl.Slot(i))
	}
	w.AssertNumberOfCalls(t, "WriteEIR", NumCustomUUID+3)
}

func TestUpdateCustomUUIDWriteFailure(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteEIR", mock.Anything).Return(bluetooth.Busy).Once()
	w.On("WriteEIR", mock.Anything).Return(bluetooth.Success)

	var failed []bluetooth.Status
	c, hook := newTestContext(t, WithWriter(w), EIRWriteFailed(func(s bluetooth.Status) {
		failed = append(failed, s)
	}))

	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, true)

	// The table is not rolled back.
	assert.Equal(t, CustomUUID{uuid1, 1}, c.CustomUUIDs().Slot(0))
	assert.Equal(t, []bluetooth.Status{bluetooth.Busy}, failed)
	assert.Equal(t, 1, c.EIRWriteFailures())
	assert.Equal(t, bluetooth.Busy, c.LastEIRStatus())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	// Nothing is retried until the next update, which carries the entry.
	w.AssertNumberOfCalls(t, "WriteEIR", 1)
	c.SetEIR()
	w.AssertNumberOfCalls(t, "WriteEIR", 2)
	assert.Equal(t, bluetooth.Success, c.LastEIRStatus())
	assert.Len(t, failed, 1)
}

func TestUpdateCustomUUIDOwnership(t *testing.T) {
	w := &leakWriter{}
	c, _ := newTestContext(t, WithWriter(w))
	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, true)
	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, false)

	// The context never releases a buffer it handed over.
	require.Len(t, w.bufs, 2)
	for i, b := range w.bufs {
		assert.False(t, b.Released(), "buffer %d released by the context", i)
		b.Release()
	}
}

func TestSetEIRFields(t *testing.T) {
	pwr := int8(-2)
	var got []byte
	w := WriterFunc(func(b *bluetooth.Buffer) bluetooth.Status {
		got = append([]byte(nil), b.Bytes()...)
		b.Release()
		return bluetooth.CmdStarted
	})
	c, _ := newTestContext(t,
		WithWriter(w),
		WithConfig(Config{LocalName: "fallback", InqTxPower: &pwr}),
		WithServices(ServiceList{0x110a, 0x110b}),
		WithNameSource(nameFunc(func() (string, error) { return "gopher", nil })),
	)
	c.UpdateCustomUUID(CustomUUID{uuid1, 1}, true)

	e, err := bluetooth.ParseEIR(got)
	require.NoError(t, err)
	assert.Equal(t, "gopher", e.LocalName)
	assert.Equal(t, []bluetooth.UUID{bluetooth.UUID16(0x110a), bluetooth.UUID16(0x110b), uuid1}, e.Services)
	require.NotNil(t, e.TxPower)
	assert.Equal(t, pwr, *e.TxPower)
	assert.Equal(t, 0, c.EIRWriteFailures())

	// Name source failures fall back to the configured name.
	c.Option(WithNameSource(nameFunc(func() (string, error) { return "", errors.New("no controller") })))
	c.SetEIR()
	e, err = bluetooth.ParseEIR(got)
	require.NoError(t, err)
	assert.Equal(t, "fallback", e.LocalName)
}

func TestRegister(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteEIR", mock.Anything).Return(bluetooth.Success)
	c, _ := newTestContext(t, WithWriter(w))

	c.Register(CustomUUID{uuid1, 1}, CustomUUID{uuid2, 2}, CustomUUID{uuid3, 0})
	assert.Equal(t, []bluetooth.UUID{uuid1, uuid2}, c.CustomUUIDs().UUIDs())
	w.AssertNumberOfCalls(t, "WriteEIR", 1)
}

func TestServiceList(t *testing.T) {
	l := ServiceList{1, 2, 3}
	uu, complete := l.EIRServices(2)
	assert.Equal(t, []uint16{1, 2}, uu)
	assert.False(t, complete)
	uu, complete = l.EIRServices(5)
	assert.Equal(t, []uint16{1, 2, 3}, uu)
	assert.True(t, complete)
}
