// Package recorder persists the encoded packet stream of a session as a
// chunk series plus a JSON manifest. Recording is layered on top of packet
// emission; it defines no container format and never feeds back into the
// pipeline.
package recorder

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"primestream/internal/storage"
	"primestream/pkg/models"
)

// chunkTarget is the approximate payload size per stored chunk
const chunkTarget = 4 << 20 // 4 MiB

// manifest describes a finished recording
type manifest struct {
	SessionID  string    `json:"sessionId"`
	Codec      string    `json:"codec"`
	Chunks     []string  `json:"chunks"`
	Packets    uint64    `json:"packets"`
	Keyframes  uint64    `json:"keyframes"`
	Bytes      uint64    `json:"bytes"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Recorder buffers sent packets and flushes them to storage in chunks.
// It implements the engine's PacketSink.
type Recorder struct {
	storage   storage.Storage
	sessionID string
	ext       string

	mu       sync.Mutex
	buf      []byte
	chunkSeq int
	man      manifest
	closed   bool
}

// New creates a recorder for one session, keyed by session ID in storage
func New(store storage.Storage, sessionID string, codec models.VideoCodec) *Recorder {
	ext := "h264"
	switch codec {
	case models.CodecHEVC:
		ext = "hevc"
	case models.CodecAV1:
		ext = "ivf"
	}
	return &Recorder{
		storage:   store,
		sessionID: sessionID,
		ext:       ext,
		man: manifest{
			SessionID: sessionID,
			Codec:     string(codec),
			StartedAt: time.Now(),
		},
	}
}

// WritePacket appends one sent packet to the recording
func (r *Recorder) WritePacket(packet *models.EncodedPacket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder closed")
	}

	r.buf = append(r.buf, packet.Payload...)
	r.man.Packets++
	r.man.Bytes += uint64(len(packet.Payload))
	if packet.IsKeyframe {
		r.man.Keyframes++
	}

	if len(r.buf) >= chunkTarget {
		return r.flushLocked()
	}
	return nil
}

// Close flushes pending data and writes the manifest
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.flushLocked(); err != nil {
		return err
	}

	r.man.FinishedAt = time.Now()
	data, err := json.MarshalIndent(&r.man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := fmt.Sprintf("%s/manifest.json", r.sessionID)
	if err := r.storage.Write(path, data); err != nil {
		return err
	}

	log.Printf("Recording %s finished: %d packets, %d bytes in %d chunks",
		r.sessionID, r.man.Packets, r.man.Bytes, len(r.man.Chunks))
	return nil
}

// flushLocked writes the buffered payload as the next chunk; r.mu held
func (r *Recorder) flushLocked() error {
	if len(r.buf) == 0 {
		return nil
	}

	name := fmt.Sprintf("chunk-%05d.%s", r.chunkSeq, r.ext)
	path := fmt.Sprintf("%s/%s", r.sessionID, name)
	if err := r.storage.Write(path, r.buf); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}

	r.man.Chunks = append(r.man.Chunks, name)
	r.chunkSeq++
	r.buf = r.buf[:0]
	return nil
}
