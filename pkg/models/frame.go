package models

import "time"

// PixelFormat identifies the raw pixel layout of a captured frame
type PixelFormat string

const (
	PixelFormatBGRA   PixelFormat = "bgra"
	PixelFormatNV12   PixelFormat = "nv12"
	PixelFormatP010   PixelFormat = "p010"   // 10-bit, HDR capture
	PixelFormatHandle PixelFormat = "dmabuf" // zero-copy GPU buffer handle
)

// CapturedFrame represents one raw frame pulled from a capture source.
// A frame has exactly one owner at a time: it is created by the capture
// stage and consumed (and released) by the encode stage within the same
// pipeline iteration.
type CapturedFrame struct {
	Data   []byte      // Raw pixel data; nil when Handle carries the frame
	Handle uintptr     // Zero-copy buffer descriptor (dmabuf fd or GPU handle)
	Width  int         // Frame width in pixels
	Height int         // Frame height in pixels
	Stride int         // Bytes per row
	Format PixelFormat // Pixel layout

	CapturedAt time.Time // Monotonic capture timestamp
	HDR        bool      // Frame carries HDR pixel data
}

// Release drops the frame's payload so the backing buffer can be reclaimed
func (f *CapturedFrame) Release() {
	f.Data = nil
	f.Handle = 0
}

// EncodedPacket is one compressed bitstream slice produced by the encode
// stage and consumed (and freed) by the transport stage after send.
type EncodedPacket struct {
	Payload []byte // Compressed bitstream

	PTS time.Duration // Presentation timestamp
	DTS time.Duration // Decode timestamp

	IsKeyframe    bool // Self-contained frame, decodable without references
	IsConfigFrame bool // Carries codec configuration (SPS/PPS style headers)

	EncodeLatency time.Duration // Time spent inside the encoder for this packet
}
