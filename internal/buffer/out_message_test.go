package buffer

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/s1s5/gofuse/internal/fusekernel"
)

func TestOutMessageAppend(t *testing.T) {
	om := NewOutMessage(0)

	const wantPayload = "tacoburrito"
	om.Append([]byte(wantPayload)[:4])
	om.Append([]byte(wantPayload)[4:])

	wantLen := OutMessageHeaderSize + len(wantPayload)
	if got := om.Len(); got != wantLen {
		t.Errorf("om.Len() = %d, want %d", got, wantLen)
	}

	want := append(make([]byte, OutMessageHeaderSize), wantPayload...)
	if !bytes.Equal(om.Bytes(), want) {
		t.Error("messages differ")
	}
}

func TestOutMessageAppendString(t *testing.T) {
	om := NewOutMessage(0)

	om.AppendString("taco")
	om.AppendString("burrito")

	want := append(make([]byte, OutMessageHeaderSize), "tacoburrito"...)
	if !bytes.Equal(om.Bytes(), want) {
		t.Error("messages differ")
	}
}

func TestOutMessageGrowIsZeroed(t *testing.T) {
	om := NewOutMessage(256)

	p := om.Grow(128)
	if p == nil {
		t.Fatal("Grow returned nil")
	}

	b := unsafe.Slice((*byte)(p), 128)
	for i, x := range b {
		if x != 0 {
			t.Fatalf("non-zero byte 0x%02x at offset %d", x, i)
		}
	}
}

func TestOutMessageHeader(t *testing.T) {
	om := NewOutMessage(0)

	h := om.OutHeader()
	h.Len = 1234
	h.Error = -5
	h.Unique = 99

	b := om.Bytes()
	if got, want := len(b), OutMessageHeaderSize; got != want {
		t.Fatalf("len(om.Bytes()) = %d, want %d", got, want)
	}

	got := (*fusekernel.OutHeader)(unsafe.Pointer(&b[0]))
	if got.Len != 1234 || got.Error != -5 || got.Unique != 99 {
		t.Fatalf("header not reflected in Bytes(): %+v", *got)
	}
}

func TestPutStruct(t *testing.T) {
	om := NewOutMessage(0)

	PutStruct(&om, fusekernel.WriteOut{Size: 42})

	want := OutMessageHeaderSize + int(unsafe.Sizeof(fusekernel.WriteOut{}))
	if got := om.Len(); got != want {
		t.Fatalf("om.Len() = %d, want %d", got, want)
	}

	wo := (*fusekernel.WriteOut)(unsafe.Pointer(&om.Bytes()[OutMessageHeaderSize]))
	if wo.Size != 42 {
		t.Fatalf("wo.Size = %d, want 42", wo.Size)
	}
}
