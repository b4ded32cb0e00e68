package capture

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"primestream/pkg/models"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screencastIface = "org.freedesktop.portal.ScreenCast"
	requestIface    = "org.freedesktop.portal.Request"
	responseMember  = "Response"
	responseGranted = uint32(0)
)

// portal source type bitmask
const (
	portalSourceMonitor uint32 = 1
	portalSourceWindow  uint32 = 2
)

// portalSource negotiates a compositor capture session through the
// xdg-desktop-portal ScreenCast interface. The portal hands back a PipeWire
// node; actual frame delivery rides the zero-copy path, so Capture on this
// source only reports the negotiated stream handle.
type portalSource struct {
	conn        *dbus.Conn
	sessionPath dbus.ObjectPath
	nodeID      uint32
	res         models.Resolution
	closed      bool
}

func openPortalSource(res models.Resolution) (Source, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", ErrCaptureUnavailable, err)
	}

	s := &portalSource{conn: conn, res: res}

	sessionPath, err := s.createSession()
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrCaptureUnavailable, err)
	}
	s.sessionPath = sessionPath

	if err := s.selectSources(); err != nil {
		return nil, fmt.Errorf("%w: select sources: %v", ErrCaptureUnavailable, err)
	}

	nodeID, err := s.start()
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrCaptureUnavailable, err)
	}
	s.nodeID = nodeID

	return s, nil
}

// Capture reports the stream handle; pixel delivery happens over PipeWire
// on the zero-copy path, which is not part of this package.
func (s *portalSource) Capture(ctx context.Context) (*models.CapturedFrame, error) {
	if s.closed {
		return nil, ErrCaptureUnavailable
	}
	return &models.CapturedFrame{
		Handle: uintptr(s.nodeID),
		Width:  s.res.Width,
		Height: s.res.Height,
		Format: models.PixelFormatHandle,
	}, nil
}

// Close tears down the portal session
func (s *portalSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.sessionPath != "" {
		obj := s.conn.Object(portalDest, s.sessionPath)
		obj.Call("org.freedesktop.portal.Session.Close", 0)
	}
	return nil
}

func (s *portalSource) createSession() (dbus.ObjectPath, error) {
	opts := map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant("primestream"),
		"session_handle_token": dbus.MakeVariant("primestream"),
	}
	results, err := s.portalCall(screencastIface+".CreateSession", opts)
	if err != nil {
		return "", err
	}
	handle, ok := results["session_handle"]
	if !ok {
		return "", fmt.Errorf("response missing session_handle")
	}
	path, ok := handle.Value().(string)
	if !ok {
		return "", fmt.Errorf("session_handle has unexpected type %T", handle.Value())
	}
	return dbus.ObjectPath(path), nil
}

func (s *portalSource) selectSources() error {
	opts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant("primestream"),
		"types":        dbus.MakeVariant(portalSourceMonitor | portalSourceWindow),
		"multiple":     dbus.MakeVariant(false),
	}
	_, err := s.portalCall(screencastIface+".SelectSources", s.sessionPath, opts)
	return err
}

func (s *portalSource) start() (uint32, error) {
	opts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant("primestream"),
	}
	results, err := s.portalCall(screencastIface+".Start", s.sessionPath, "", opts)
	if err != nil {
		return 0, err
	}

	streams, ok := results["streams"]
	if !ok {
		return 0, fmt.Errorf("response missing streams")
	}
	// streams is a(ua{sv}): node ID plus per-stream properties
	entries, ok := streams.Value().([][]interface{})
	if !ok || len(entries) == 0 || len(entries[0]) == 0 {
		return 0, fmt.Errorf("no capture streams granted")
	}
	nodeID, ok := entries[0][0].(uint32)
	if !ok {
		return 0, fmt.Errorf("stream node ID has unexpected type %T", entries[0][0])
	}
	return nodeID, nil
}

// portalCall invokes a portal method and waits for the Response signal on
// the returned request object.
func (s *portalSource) portalCall(method string, args ...interface{}) (map[string]dbus.Variant, error) {
	obj := s.conn.Object(portalDest, dbus.ObjectPath(portalPath))
	call := obj.Call(method, 0, args...)
	if call.Err != nil {
		return nil, call.Err
	}

	var requestPath dbus.ObjectPath
	if err := call.Store(&requestPath); err != nil {
		return nil, err
	}

	if err := s.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(requestPath),
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember(responseMember),
	); err != nil {
		return nil, err
	}

	signals := make(chan *dbus.Signal, 1)
	s.conn.Signal(signals)
	defer s.conn.RemoveSignal(signals)

	for sig := range signals {
		if sig.Path != requestPath || len(sig.Body) != 2 {
			continue
		}
		status, _ := sig.Body[0].(uint32)
		if status != responseGranted {
			return nil, fmt.Errorf("portal request denied (status %d)", status)
		}
		results, _ := sig.Body[1].(map[string]dbus.Variant)
		return results, nil
	}
	return nil, fmt.Errorf("portal signal channel closed")
}
