package pool

import (
	"bytes"
	"testing"
)

func TestBufferPoolGetIsEmpty(t *testing.T) {
	bp := NewBufferPool(64)
	buf := bp.Get()
	buf.WriteString("hello")
	bp.Put(buf)

	again := bp.Get()
	if again.Len() != 0 {
		t.Fatalf("expected empty buffer, got %d bytes", again.Len())
	}
}

func TestBufferPoolDetachOwnsCopy(t *testing.T) {
	bp := NewBufferPool(64)
	buf := bp.Get()
	buf.WriteString("payload")

	out := bp.Detach(buf)
	if !bytes.Equal(out, []byte("payload")) {
		t.Fatalf("Detach = %q", out)
	}

	// Reusing the pooled buffer must not change the detached slice.
	next := bp.Get()
	next.WriteString("XXXXXXX")
	if string(out) != "payload" {
		t.Fatalf("detached slice changed to %q", out)
	}
}

func TestBufferPoolDropsOversized(t *testing.T) {
	bp := NewBufferPool(8)
	big := bytes.NewBuffer(make([]byte, 0, 1024))
	bp.Put(big) // must not panic, silently dropped
	bp.Put(nil)
}
