package encode

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"primestream/internal/codecutil"
	"primestream/pkg/models"
)

// ffmpegDevice encodes one frame per invocation through an ffmpeg process.
// One-shot invocations keep the session stateless, so every produced packet
// is self-contained (an IDR frame); the keyframe cadence decided upstream is
// therefore always satisfied by this backend.
type ffmpegDevice struct {
	cfg      DeviceConfig
	encoder  string
	hardware bool

	mu          sync.Mutex
	bitrateKbps int
	closed      bool
	seenConfig  bool
}

func newFFmpegDevice(cfg DeviceConfig, encoder string, hardware bool) *ffmpegDevice {
	mode := "software"
	if hardware {
		mode = "hardware"
	}
	log.Printf("Opened %s encoder %s (%s, %dx%d @ %d kbps)",
		mode, encoder, cfg.Codec, cfg.Resolution.Width, cfg.Resolution.Height, cfg.BitrateKbps)

	return &ffmpegDevice{
		cfg:         cfg,
		encoder:     encoder,
		hardware:    hardware,
		bitrateKbps: cfg.BitrateKbps,
	}
}

// Submit encodes one raw frame and returns the compressed packet
func (d *ffmpegDevice) Submit(ctx context.Context, frame *models.CapturedFrame, forceKeyframe bool) (*models.EncodedPacket, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrEncoderNotReady
	}
	bitrate := d.bitrateKbps
	firstPacket := !d.seenConfig
	d.mu.Unlock()

	if len(frame.Data) == 0 {
		// Zero-copy handles need a hardware session bound to the GPU buffer,
		// which the one-shot path cannot reach.
		return nil, fmt.Errorf("%w: no CPU-side pixel data", ErrEncodeFailed)
	}

	start := time.Now()
	payload, err := d.runEncode(ctx, frame, bitrate)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrWouldBlock, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	d.mu.Lock()
	d.seenConfig = true
	d.mu.Unlock()

	keyframe := true
	configFrame := firstPacket
	if codecutil.IsAnnexB(payload) {
		hevc := d.cfg.Codec == models.CodecHEVC
		keyframe = codecutil.ContainsKeyframe(payload, hevc)
		configFrame = codecutil.ContainsParameterSets(payload, hevc)
	}

	return &models.EncodedPacket{
		Payload:       payload,
		IsKeyframe:    keyframe,
		IsConfigFrame: configFrame,
		EncodeLatency: time.Since(start),
	}, nil
}

// SetBitrate retargets the encoder bitrate for subsequent frames
func (d *ffmpegDevice) SetBitrate(kbps int) {
	d.mu.Lock()
	d.bitrateKbps = kbps
	d.mu.Unlock()
}

// Close releases the session
func (d *ffmpegDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *ffmpegDevice) runEncode(ctx context.Context, frame *models.CapturedFrame, bitrateKbps int) ([]byte, error) {
	outFormat := "h264"
	switch d.cfg.Codec {
	case models.CodecHEVC:
		outFormat = "hevc"
	case models.CodecAV1:
		outFormat = "ivf"
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", pixFmtArg(frame.Format),
		"-s", fmt.Sprintf("%dx%d", frame.Width, frame.Height),
		"-i", "pipe:0",
		"-frames:v", "1",
		"-c:v", d.encoder,
		"-b:v", strconv.Itoa(bitrateKbps) + "k",
	}
	if d.hardware {
		args = append(args, "-preset", d.cfg.Preset, "-tune", "ull", "-zerolatency", "1")
	} else {
		args = append(args, "-preset", "ultrafast", "-tune", "zerolatency")
	}
	if d.cfg.SlicedEncoding {
		args = append(args, "-slices", "4")
	}
	args = append(args, "-f", outFormat, "pipe:1")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = bytes.NewReader(frame.Data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := stderr.String(); msg != "" {
			return nil, fmt.Errorf("%v: %s", err, msg)
		}
		return nil, err
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("encoder produced no output")
	}
	return stdout.Bytes(), nil
}

func pixFmtArg(format models.PixelFormat) string {
	switch format {
	case models.PixelFormatNV12:
		return "nv12"
	case models.PixelFormatP010:
		return "p010le"
	default:
		return "bgra"
	}
}
