package cmdbuf

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/cmdgraph/rt"
)

// TestRectWriteReadRoundTrip tests the rectangular write/read appenders
// through a full enqueue: a tight host block lands in a pitched buffer
// sub-rectangle and comes back byte-exact, with zero host pitches taking
// the tightly-packed defaults and the rest of the buffer untouched.
func TestRectWriteReadRoundTrip(t *testing.T) {
	ctx, dev := testSetup(t)

	// 8 rows of 8 bytes.
	const rowPitch = 8
	buf, err := rt.NewBuffer(dev, 64)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer buf.Release()

	// Tight 3x2 host block.
	src := []byte{10, 11, 12, 20, 21, 22}
	back := make([]byte, len(src))
	full := make([]byte, 64)

	cb, _ := Create(ctx, dev, nil)
	defer cb.Release()

	spFill, err := cb.AppendBufferFill(buf, []byte{0xCC}, 0, 64, nil)
	if err != nil {
		t.Fatalf("AppendBufferFill failed: %v", err)
	}

	region := graph.Extent3D{Width: 3, Height: 2, Depth: 1}
	bufferOrigin := graph.Offset3D{X: 2, Y: 1}

	// Zero host pitches: the region width is the row pitch.
	spWrite, err := cb.AppendBufferWriteRect(buf, bufferOrigin, graph.Offset3D{},
		region, rowPitch, 0, 0, 0, unsafe.Pointer(&src[0]), []SyncPoint{spFill})
	if err != nil {
		t.Fatalf("AppendBufferWriteRect failed: %v", err)
	}
	if _, err := cb.AppendBufferReadRect(buf, bufferOrigin, graph.Offset3D{},
		region, rowPitch, 0, 0, 0, unsafe.Pointer(&back[0]), []SyncPoint{spWrite}); err != nil {
		t.Fatalf("AppendBufferReadRect failed: %v", err)
	}
	if _, err := cb.AppendBufferRead(buf, 0, 64, unsafe.Pointer(&full[0]),
		[]SyncPoint{spWrite}); err != nil {
		t.Fatalf("AppendBufferRead failed: %v", err)
	}

	if err := cb.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	q, _ := rt.NewQueue(dev, 1)
	defer q.Free()
	ev, err := cb.Enqueue(q, nil)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := ev.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if !bytes.Equal(src, back) {
		t.Errorf("Rect round trip = %v, expected %v", back, src)
	}

	// The block sits at rows 1-2, columns 2-4 of the buffer; everything
	// else keeps the fill byte.
	want := bytes.Repeat([]byte{0xCC}, 64)
	copy(want[1*rowPitch+2:], src[0:3])
	copy(want[2*rowPitch+2:], src[3:6])
	if !bytes.Equal(want, full) {
		t.Errorf("Buffer image mismatch:\n got %v\nwant %v", full, want)
	}
}

// TestBufferCopyRect tests the device-to-device rectangular copy appender
func TestBufferCopyRect(t *testing.T) {
	ctx, dev := testSetup(t)

	const rowPitch = 8
	srcBuf, err := rt.NewBuffer(dev, 64)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer srcBuf.Release()
	dstBuf, err := rt.NewBuffer(dev, 64)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer dstBuf.Release()

	srcImage := make([]byte, 64)
	for i := range srcImage {
		srcImage[i] = byte(i)
	}
	full := make([]byte, 64)

	cb, _ := Create(ctx, dev, nil)
	defer cb.Release()

	spSrc, err := cb.AppendBufferWrite(srcBuf, 0, 64, unsafe.Pointer(&srcImage[0]), nil)
	if err != nil {
		t.Fatalf("AppendBufferWrite failed: %v", err)
	}
	spDst, err := cb.AppendBufferFill(dstBuf, []byte{0}, 0, 64, nil)
	if err != nil {
		t.Fatalf("AppendBufferFill failed: %v", err)
	}

	// 4x2 block from rows 2-3, columns 4-7 into rows 5-6, columns 0-3.
	spCopy, err := cb.AppendBufferCopyRect(srcBuf, dstBuf,
		graph.Offset3D{X: 4, Y: 2}, graph.Offset3D{X: 0, Y: 5},
		graph.Extent3D{Width: 4, Height: 2, Depth: 1},
		rowPitch, 0, rowPitch, 0, []SyncPoint{spSrc, spDst})
	if err != nil {
		t.Fatalf("AppendBufferCopyRect failed: %v", err)
	}
	if _, err := cb.AppendBufferRead(dstBuf, 0, 64, unsafe.Pointer(&full[0]),
		[]SyncPoint{spCopy}); err != nil {
		t.Fatalf("AppendBufferRead failed: %v", err)
	}

	if err := cb.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	q, _ := rt.NewQueue(dev, 1)
	defer q.Free()
	ev, err := cb.Enqueue(q, nil)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := ev.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	want := make([]byte, 64)
	copy(want[5*rowPitch:], srcImage[2*rowPitch+4:2*rowPitch+8])
	copy(want[6*rowPitch:], srcImage[3*rowPitch+4:3*rowPitch+8])
	if !bytes.Equal(want, full) {
		t.Errorf("Rect copy image mismatch:\n got %v\nwant %v", full, want)
	}
}
