package transport

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"primestream/pkg/models"
)

// startUDPReceiver binds a local UDP socket and returns its port and a
// channel of received datagrams.
func startUDPReceiver(t *testing.T) (int, <-chan []byte) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	out := make(chan []byte, 64)
	go func() {
		buf := make([]byte, 2048)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				close(out)
				return
			}
			out <- append([]byte(nil), buf[:n]...)
		}
	}()
	return conn.LocalAddr().(*net.UDPAddr).Port, out
}

func recvDatagram(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
		return nil
	}
}

func TestRTPHeaderAndMarker(t *testing.T) {
	port, received := startUDPReceiver(t)

	sender, err := connectRTP("127.0.0.1", port, SenderConfig{MaxPacketSize: 112})
	if err != nil {
		t.Fatalf("connectRTP failed: %v", err)
	}
	defer sender.Close()

	// 250 payload bytes at 100 bytes per packet (112 - 12 header) slices
	// into three RTP packets; only the last carries the marker bit.
	payload := make([]byte, 250)
	n, err := sender.Send(&models.EncodedPacket{
		Payload: payload,
		PTS:     time.Second,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if want := 250 + 3*12; n != want {
		t.Errorf("Send returned %d bytes, want %d", n, want)
	}

	var firstSSRC uint32
	for i := 0; i < 3; i++ {
		d := recvDatagram(t, received)
		if len(d) < 12 {
			t.Fatalf("packet %d too short: %d bytes", i, len(d))
		}
		if version := d[0] >> 6; version != 2 {
			t.Errorf("packet %d version = %d, want 2", i, version)
		}
		marker := d[1]&0x80 != 0
		if wantMarker := i == 2; marker != wantMarker {
			t.Errorf("packet %d marker = %v, want %v", i, marker, wantMarker)
		}
		if pt := d[1] & 0x7F; pt != rtpPayloadType {
			t.Errorf("packet %d payload type = %d, want %d", i, pt, rtpPayloadType)
		}
		if seq := binary.BigEndian.Uint16(d[2:4]); seq != uint16(i) {
			t.Errorf("packet %d sequence = %d, want %d", i, seq, i)
		}
		if ts := binary.BigEndian.Uint32(d[4:8]); ts != rtpClockRate {
			t.Errorf("packet %d timestamp = %d, want %d (PTS of 1s)", i, ts, rtpClockRate)
		}
		ssrc := binary.BigEndian.Uint32(d[8:12])
		if i == 0 {
			firstSSRC = ssrc
		} else if ssrc != firstSSRC {
			t.Errorf("packet %d ssrc = %d, want %d", i, ssrc, firstSSRC)
		}
	}
}

func TestRTPFECHeadroom(t *testing.T) {
	port, received := startUDPReceiver(t)

	// 25% FEC overhead shrinks the per-packet budget from 100 to 80 bytes,
	// so 250 payload bytes take four packets instead of three.
	sender, err := connectRTP("127.0.0.1", port, SenderConfig{MaxPacketSize: 112, FECPercent: 25})
	if err != nil {
		t.Fatalf("connectRTP failed: %v", err)
	}
	defer sender.Close()

	n, err := sender.Send(&models.EncodedPacket{Payload: make([]byte, 250)})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if want := 250 + 4*12; n != want {
		t.Errorf("Send returned %d bytes, want %d", n, want)
	}
	for i := 0; i < 4; i++ {
		d := recvDatagram(t, received)
		if len(d) > 92 {
			t.Errorf("packet %d is %d bytes, want <= 92", i, len(d))
		}
	}
}

func TestRTPSendAfterClose(t *testing.T) {
	port, _ := startUDPReceiver(t)

	sender, err := connectRTP("127.0.0.1", port, SenderConfig{})
	if err != nil {
		t.Fatalf("connectRTP failed: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	if _, err := sender.Send(&models.EncodedPacket{Payload: []byte{1}}); err != ErrNotConnected {
		t.Errorf("Send after Close = %v, want ErrNotConnected", err)
	}
}
