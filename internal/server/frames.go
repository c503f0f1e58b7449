package server

import (
	"sync"

	"gocv.io/x/gocv"
)

// FrameBuffer holds the latest output frame as JPEG for the preview stream.
// The frame loop writes it; stream handlers read it.
type FrameBuffer struct {
	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
}

// NewFrameBuffer returns an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{updated: make(chan struct{})}
}

// Publish encodes frame as JPEG and makes it the latest frame.
func (b *FrameBuffer) Publish(frame gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	b.Set(data)
	return nil
}

// Set stores an already encoded JPEG and wakes waiting readers.
func (b *FrameBuffer) Set(jpeg []byte) {
	b.mu.Lock()
	b.jpeg = jpeg
	b.seq++
	close(b.updated)
	b.updated = make(chan struct{})
	b.mu.Unlock()
}

// Latest returns the latest JPEG, its sequence number and a channel closed
// by the next Set. A zero sequence means no frame yet.
func (b *FrameBuffer) Latest() ([]byte, uint64, <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jpeg, b.seq, b.updated
}
