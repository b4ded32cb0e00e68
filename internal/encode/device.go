// Package encode transforms captured frames into compressed packets using a
// hardware encoder when one is available, falling back to software.
package encode

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"primestream/internal/caps"
	"primestream/pkg/models"
)

var (
	// ErrEncoderNotReady is returned when no encoder session could be opened
	ErrEncoderNotReady = errors.New("encoder not ready")

	// ErrEncodeFailed is returned on a device-reported per-frame failure
	ErrEncodeFailed = errors.New("encode failed")

	// ErrWouldBlock is returned when the device cannot accept a frame right
	// now; the frame is dropped and the pipeline continues
	ErrWouldBlock = errors.New("encoder would block")
)

// DeviceConfig describes the encoder session to open
type DeviceConfig struct {
	Codec          models.VideoCodec
	Resolution     models.Resolution
	Framerate      int
	BitrateKbps    int
	Preset         string // Encoder speed/quality knob (p1..p7, lossless)
	PixelFormat    models.PixelFormat
	SlicedEncoding bool
	IntraRefresh   bool
}

// Device is an open encoder session. Submit blocks until the device produces
// a packet or the context expires; Close releases the session.
type Device interface {
	Submit(ctx context.Context, frame *models.CapturedFrame, forceKeyframe bool) (*models.EncodedPacket, error)
	SetBitrate(kbps int)
	Close() error
}

// hardware encoder names per codec, tried before the software fallback
var hardwareEncoders = map[models.VideoCodec]string{
	models.CodecH264: "h264_nvenc",
	models.CodecHEVC: "hevc_nvenc",
	models.CodecAV1:  "av1_nvenc",
}

// software fallback encoder names per codec
var softwareEncoders = map[models.VideoCodec]string{
	models.CodecH264: "libx264",
	models.CodecHEVC: "libx265",
	models.CodecAV1:  "libaom-av1",
}

// OpenDevice opens an encoder session, resolving the backend at open time:
// the hardware encoder is used when the GPU supports it and the encoder is
// present; otherwise the software fallback. Fails with ErrEncoderNotReady
// when neither backend can be opened, leaving no partial session behind.
func OpenDevice(cfg DeviceConfig, gpu caps.GPUCaps) (Device, error) {
	available, err := listEncoders()
	if err != nil {
		return nil, ErrEncoderNotReady
	}

	if gpu.SupportsNVENC && (cfg.Codec != models.CodecAV1 || gpu.SupportsAV1) {
		if name := hardwareEncoders[cfg.Codec]; name != "" {
			if _, ok := available[name]; ok {
				return newFFmpegDevice(cfg, name, true), nil
			}
		}
	}

	name := softwareEncoders[cfg.Codec]
	if name == "" {
		return nil, ErrEncoderNotReady
	}
	if _, ok := available[name]; !ok {
		return nil, ErrEncoderNotReady
	}
	return newFFmpegDevice(cfg, name, false), nil
}

// listEncoders returns the set of video encoders the local ffmpeg supports
func listEncoders() (map[string]struct{}, error) {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, err
	}

	encoders := make(map[string]struct{})
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		// format: " V..... h264_nvenc ..." where fields[0] is the flag column
		if strings.Contains(fields[0], "V") {
			encoders[fields[1]] = struct{}{}
		}
	}
	return encoders, nil
}
