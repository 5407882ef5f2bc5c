package client

import (
	"fmt"
	"log/slog"

	"github.com/pion/webrtc/v3"

	"github.com/sharetube/watchparty/internal/protocol"
)

var DefaultICEServers = []string{"stun:stun.l.google.com:19302"}

// PionFactory opens pion peer connections. Sharers publish one VP8 screen
// track; viewers hand received tracks to the OnTrack callback.
type PionFactory struct {
	api     *webrtc.API
	config  webrtc.Configuration
	track   *webrtc.TrackLocalStaticSample
	onTrack func(*webrtc.TrackRemote)
	logger  *slog.Logger
}

type PionOption func(*PionFactory)

// WithTrackHandler receives remote tracks on the viewer side.
func WithTrackHandler(fn func(*webrtc.TrackRemote)) PionOption {
	return func(f *PionFactory) {
		f.onTrack = fn
	}
}

func NewPionFactory(iceServers []string, logger *slog.Logger, opts ...PionOption) (*PionFactory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("failed to register codecs: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"screen",
		"watchparty-screen",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create screen track: %w", err)
	}

	var servers []webrtc.ICEServer
	if len(iceServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: iceServers}}
	}

	f := &PionFactory{
		api:    webrtc.NewAPI(webrtc.WithMediaEngine(m)),
		config: webrtc.Configuration{ICEServers: servers},
		track:  track,
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Track is the local screen track; samples written to it reach every viewer.
func (f *PionFactory) Track() *webrtc.TrackLocalStaticSample {
	return f.track
}

func (f *PionFactory) NewPeer(role PeerRole, onCandidate func(protocol.ICECandidate)) (PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		onCandidate(protocol.ICECandidate{
			Candidate:        init.Candidate,
			SDPMid:           init.SDPMid,
			SDPMLineIndex:    init.SDPMLineIndex,
			UsernameFragment: init.UsernameFragment,
		})
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		f.logger.Debug("peer connection state changed", "state", state.String())
	})

	switch role {
	case PeerSharer:
		if _, err := pc.AddTrack(f.track); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("failed to add screen track: %w", err)
		}
	case PeerViewer:
		pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			if f.onTrack != nil {
				f.onTrack(track)
			}
		})
	}

	return &pionPeer{pc: pc}, nil
}

type pionPeer struct {
	pc *webrtc.PeerConnection
}

func (p *pionPeer) CreateOffer() (protocol.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return protocol.SessionDescription{}, err
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return protocol.SessionDescription{}, err
	}
	return toSessionDescription(offer), nil
}

func (p *pionPeer) CreateAnswer() (protocol.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return protocol.SessionDescription{}, err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return protocol.SessionDescription{}, err
	}
	return toSessionDescription(answer), nil
}

func (p *pionPeer) SetRemoteDescription(desc protocol.SessionDescription) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(desc.Type),
		SDP:  desc.SDP,
	})
}

func (p *pionPeer) AddICECandidate(candidate protocol.ICECandidate) error {
	return p.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:        candidate.Candidate,
		SDPMid:           candidate.SDPMid,
		SDPMLineIndex:    candidate.SDPMLineIndex,
		UsernameFragment: candidate.UsernameFragment,
	})
}

func (p *pionPeer) Close() error {
	return p.pc.Close()
}

func toSessionDescription(desc webrtc.SessionDescription) protocol.SessionDescription {
	return protocol.SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}
}
