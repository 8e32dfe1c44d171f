package buffer

import (
	"bytes"
	"testing"

	"github.com/s1s5/gofuse/internal/fusekernel"
)

func packetBytes(hdr fusekernel.InHeader, payload []byte) []byte {
	b := make([]byte, InHeaderSize)
	// Encode the header field by field; avoids relying on struct layout
	// tricks inside the test itself.
	putU32(b[0:4], hdr.Len)
	putU32(b[4:8], uint32(hdr.Opcode))
	putU64(b[8:16], hdr.Unique)
	putU64(b[16:24], hdr.Nodeid)
	putU32(b[24:28], hdr.Uid)
	putU32(b[28:32], hdr.Gid)
	putU32(b[32:36], hdr.Pid)
	putU32(b[36:40], hdr.Padding)
	return append(b, payload...)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestInMessageHeaderAndConsume(t *testing.T) {
	hdr := fusekernel.InHeader{
		Len:    uint32(InHeaderSize + 8),
		Opcode: fusekernel.OpMknod,
		Unique: 42,
		Nodeid: 1,
		Uid:    500,
		Gid:    500,
		Pid:    1234,
	}

	raw := packetBytes(hdr, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	m := &InMessage{buf: make([]byte, len(raw))}
	copy(m.buf, raw)

	got, ok := m.Header()
	if !ok {
		t.Fatal("Header() reported insufficient data")
	}
	if got != hdr {
		t.Fatalf("Header() = %+v, want %+v", got, hdr)
	}

	if got, want := m.Remaining(), 8; got != want {
		t.Fatalf("Remaining() = %d, want %d", got, want)
	}

	b := m.ConsumeBytes(8)
	if !bytes.Equal(b, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("ConsumeBytes = %v", b)
	}

	if m.Remaining() != 0 {
		t.Fatalf("Remaining() = %d after consuming everything, want 0", m.Remaining())
	}
}

func TestInMessageHeaderShortRead(t *testing.T) {
	m := &InMessage{buf: make([]byte, InHeaderSize-1)}
	if _, ok := m.Header(); ok {
		t.Fatal("Header() succeeded on a short buffer")
	}
}

func TestInMessageConsumeCString(t *testing.T) {
	m := &InMessage{buf: []byte("hello\x00world\x00")}

	s, ok := m.ConsumeCString()
	if !ok || s != "hello" {
		t.Fatalf("ConsumeCString() = %q, %v", s, ok)
	}

	s, ok = m.ConsumeCString()
	if !ok || s != "world" {
		t.Fatalf("ConsumeCString() = %q, %v", s, ok)
	}

	if _, ok := m.ConsumeCString(); ok {
		t.Fatal("ConsumeCString() succeeded with no NUL byte remaining")
	}
}

func TestConsumeGeneric(t *testing.T) {
	m := &InMessage{buf: make([]byte, 0, 16)}
	m.buf = append(m.buf, make([]byte, 8)...)
	putU64(m.buf, 0xdeadbeef)

	v, ok := Consume[uint64](m)
	if !ok || v != 0xdeadbeef {
		t.Fatalf("Consume[uint64]() = %#x, %v", v, ok)
	}

	if m.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0", m.Remaining())
	}
}
