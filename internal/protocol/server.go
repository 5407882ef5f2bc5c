package protocol

import "github.com/sharetube/watchparty/internal/domain"

// ServerEvent is any event the server sends to a client.
type ServerEvent interface {
	Event
	serverEvent()
}

// SyncState is the authoritative playback snapshot a controller reports.
type SyncState struct {
	domain.PlayerState
	VideoURL string `json:"videoUrl,omitempty"`
}

type ConnectedEvent struct {
	SocketID string `json:"socketId"`
}

type MembersUpdateEvent struct {
	Members []domain.Member `json:"members"`
}

type ChatMessageEvent struct {
	domain.ChatMessage
}

type HistoryUpdateEvent struct {
	History []string `json:"history"`
}

type VideoUpdateEvent struct {
	VideoURL string `json:"videoUrl"`
}

type PlaylistUpdateEvent struct {
	Playlist []string `json:"playlist"`
}

type SyncPlayerStateEvent struct {
	SyncState
}

type InitialStateEvent struct {
	SyncState
}

type GetControllerStateEvent struct {
	RequesterID string `json:"requesterId"`
}

type KickedEvent struct {
	Message string `json:"message"`
}

type BannedEvent struct {
	Message string `json:"message"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type RoomExpiredEvent struct {
	Message string `json:"message"`
}

type ScreenShareStartedEvent struct {
	SharerID string `json:"sharerId"`
}

type ScreenShareStoppedEvent struct{}

type ScreenShareRequestEvent struct {
	RequesterID       string `json:"requesterId"`
	RequesterUsername string `json:"requesterUsername"`
}

type ScreenSharePermissionEvent struct {
	Granted bool `json:"granted"`
}

type InitiateWebRTCPeerEvent struct {
	NewPeerSocketID string `json:"newPeerSocketId"`
}

type WebRTCOfferEvent struct {
	Offer          SessionDescription `json:"offer"`
	SharerSocketID string             `json:"sharerSocketId"`
}

type WebRTCAnswerEvent struct {
	Answer         SessionDescription `json:"answer"`
	ViewerSocketID string             `json:"viewerSocketId"`
}

type WebRTCICECandidateEvent struct {
	Candidate      ICECandidate `json:"candidate"`
	SourceSocketID string       `json:"sourceSocketId"`
}

func (ConnectedEvent) EventType() string             { return EventConnected }
func (MembersUpdateEvent) EventType() string         { return EventMembersUpdate }
func (ChatMessageEvent) EventType() string           { return EventChatMessage }
func (HistoryUpdateEvent) EventType() string         { return EventHistoryUpdate }
func (VideoUpdateEvent) EventType() string           { return EventVideoUpdate }
func (PlaylistUpdateEvent) EventType() string        { return EventPlaylistUpdate }
func (SyncPlayerStateEvent) EventType() string       { return EventSyncPlayerState }
func (InitialStateEvent) EventType() string          { return EventInitialState }
func (GetControllerStateEvent) EventType() string    { return EventGetControllerState }
func (KickedEvent) EventType() string                { return EventKicked }
func (BannedEvent) EventType() string                { return EventBanned }
func (ErrorEvent) EventType() string                 { return EventError }
func (RoomExpiredEvent) EventType() string           { return EventRoomExpired }
func (ScreenShareStartedEvent) EventType() string    { return EventScreenShareStarted }
func (ScreenShareStoppedEvent) EventType() string    { return EventScreenShareStopped }
func (ScreenShareRequestEvent) EventType() string    { return EventScreenShareRequest }
func (ScreenSharePermissionEvent) EventType() string { return EventScreenSharePermission }
func (InitiateWebRTCPeerEvent) EventType() string    { return EventInitiateWebRTCPeer }
func (WebRTCOfferEvent) EventType() string           { return EventWebRTCOffer }
func (WebRTCAnswerEvent) EventType() string          { return EventWebRTCAnswer }
func (WebRTCICECandidateEvent) EventType() string    { return EventWebRTCICECandidate }

func (ConnectedEvent) serverEvent()             {}
func (MembersUpdateEvent) serverEvent()         {}
func (ChatMessageEvent) serverEvent()           {}
func (HistoryUpdateEvent) serverEvent()         {}
func (VideoUpdateEvent) serverEvent()           {}
func (PlaylistUpdateEvent) serverEvent()        {}
func (SyncPlayerStateEvent) serverEvent()       {}
func (InitialStateEvent) serverEvent()          {}
func (GetControllerStateEvent) serverEvent()    {}
func (KickedEvent) serverEvent()                {}
func (BannedEvent) serverEvent()                {}
func (ErrorEvent) serverEvent()                 {}
func (RoomExpiredEvent) serverEvent()           {}
func (ScreenShareStartedEvent) serverEvent()    {}
func (ScreenShareStoppedEvent) serverEvent()    {}
func (ScreenShareRequestEvent) serverEvent()    {}
func (ScreenSharePermissionEvent) serverEvent() {}
func (InitiateWebRTCPeerEvent) serverEvent()    {}
func (WebRTCOfferEvent) serverEvent()           {}
func (WebRTCAnswerEvent) serverEvent()          {}
func (WebRTCICECandidateEvent) serverEvent()    {}

var serverDecoders = map[string]decoder[ServerEvent]{
	EventConnected:             decodeAs[ConnectedEvent, ServerEvent],
	EventMembersUpdate:         decodeAs[MembersUpdateEvent, ServerEvent],
	EventChatMessage:           decodeAs[ChatMessageEvent, ServerEvent],
	EventHistoryUpdate:         decodeAs[HistoryUpdateEvent, ServerEvent],
	EventVideoUpdate:           decodeAs[VideoUpdateEvent, ServerEvent],
	EventPlaylistUpdate:        decodeAs[PlaylistUpdateEvent, ServerEvent],
	EventSyncPlayerState:       decodeAs[SyncPlayerStateEvent, ServerEvent],
	EventInitialState:          decodeAs[InitialStateEvent, ServerEvent],
	EventGetControllerState:    decodeAs[GetControllerStateEvent, ServerEvent],
	EventKicked:                decodeAs[KickedEvent, ServerEvent],
	EventBanned:                decodeAs[BannedEvent, ServerEvent],
	EventError:                 decodeAs[ErrorEvent, ServerEvent],
	EventRoomExpired:           decodeAs[RoomExpiredEvent, ServerEvent],
	EventScreenShareStarted:    decodeAs[ScreenShareStartedEvent, ServerEvent],
	EventScreenShareStopped:    decodeAs[ScreenShareStoppedEvent, ServerEvent],
	EventScreenShareRequest:    decodeAs[ScreenShareRequestEvent, ServerEvent],
	EventScreenSharePermission: decodeAs[ScreenSharePermissionEvent, ServerEvent],
	EventInitiateWebRTCPeer:    decodeAs[InitiateWebRTCPeerEvent, ServerEvent],
	EventWebRTCOffer:           decodeAs[WebRTCOfferEvent, ServerEvent],
	EventWebRTCAnswer:          decodeAs[WebRTCAnswerEvent, ServerEvent],
	EventWebRTCICECandidate:    decodeAs[WebRTCICECandidateEvent, ServerEvent],
}

// DecodeServerEvent turns an envelope into its typed server event.
func DecodeServerEvent(env Envelope) (ServerEvent, error) {
	decode, ok := serverDecoders[env.Type]
	if !ok {
		return nil, ErrUnknownEvent
	}
	return decode(env.Payload)
}
