package protocol

import "github.com/sharetube/watchparty/internal/domain"

// ClientEvent is any event a client sends to the server.
type ClientEvent interface {
	Event
	clientEvent()
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type RequestInitialStatePayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type PlayerStateChangePayload struct {
	RoomID string             `json:"roomId" validate:"required"`
	State  domain.PlayerState `json:"state"`
}

type ControllerStatePayload struct {
	RequesterID string             `json:"requesterId" validate:"required"`
	State       domain.PlayerState `json:"state"`
}

type ChatMessagePayload struct {
	RoomID   string           `json:"roomId" validate:"required"`
	Text     string           `json:"text" validate:"required,max=500"`
	Username string           `json:"username"`
	ReplyTo  *domain.ReplyRef `json:"replyTo,omitempty"`
	ClientID string           `json:"clientId,omitempty" validate:"omitempty,max=64"`
}

type ChangeVideoPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	VideoURL string `json:"videoUrl" validate:"required,url"`
}

type AddToPlaylistPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	VideoURL string `json:"videoUrl" validate:"required,url"`
}

type RemovePlaylistItemPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	VideoURL string `json:"videoUrl" validate:"required"`
}

type MovePlaylistItemPayload struct {
	RoomID    string           `json:"roomId" validate:"required"`
	VideoURL  string           `json:"videoUrl" validate:"required"`
	Direction domain.Direction `json:"direction" validate:"required,oneof=up down"`
}

type PlayNextInQueuePayload struct {
	RoomID string             `json:"roomId" validate:"required"`
	Mode   domain.AdvanceMode `json:"mode,omitempty" validate:"omitempty,oneof=list shuffle"`
}

// TargetUser is the shared body of the moderation events.
type TargetUser struct {
	RoomID       string `json:"roomId" validate:"required"`
	TargetUserID string `json:"targetUserId" validate:"required"`
}

type MakeModeratorPayload struct{ TargetUser }

type RemoveModeratorPayload struct{ TargetUser }

type KickUserPayload struct{ TargetUser }

type BanUserPayload struct{ TargetUser }

type UpdateUsernamePayload struct {
	RoomID      string `json:"roomId" validate:"required"`
	UserID      string `json:"userId" validate:"required"`
	NewUsername string `json:"newUsername" validate:"required"`
}

type StartScreenSharePayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type StopScreenSharePayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type ScreenShareRequestPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type ScreenShareResponsePayload struct {
	RoomID      string `json:"roomId" validate:"required"`
	RequesterID string `json:"requesterId" validate:"required"`
	Accepted    bool   `json:"accepted"`
}

type WebRTCOfferPayload struct {
	Offer          SessionDescription `json:"offer" validate:"required"`
	ViewerSocketID string             `json:"viewerSocketId" validate:"required"`
}

type WebRTCAnswerPayload struct {
	Answer         SessionDescription `json:"answer" validate:"required"`
	SharerSocketID string             `json:"sharerSocketId" validate:"required"`
}

type WebRTCICECandidatePayload struct {
	Candidate      ICECandidate `json:"candidate"`
	TargetSocketID string       `json:"targetSocketId" validate:"required"`
}

func (JoinRoomPayload) EventType() string            { return EventJoinRoom }
func (LeaveRoomPayload) EventType() string           { return EventLeaveRoom }
func (RequestInitialStatePayload) EventType() string { return EventRequestInitialState }
func (PlayerStateChangePayload) EventType() string   { return EventPlayerStateChange }
func (ControllerStatePayload) EventType() string     { return EventControllerState }
func (ChatMessagePayload) EventType() string         { return EventChatMessage }
func (ChangeVideoPayload) EventType() string         { return EventChangeVideo }
func (AddToPlaylistPayload) EventType() string       { return EventAddToPlaylist }
func (RemovePlaylistItemPayload) EventType() string  { return EventRemovePlaylistItem }
func (MovePlaylistItemPayload) EventType() string    { return EventMovePlaylistItem }
func (PlayNextInQueuePayload) EventType() string     { return EventPlayNextInQueue }
func (MakeModeratorPayload) EventType() string       { return EventMakeModerator }
func (RemoveModeratorPayload) EventType() string     { return EventRemoveModerator }
func (KickUserPayload) EventType() string            { return EventKickUser }
func (BanUserPayload) EventType() string             { return EventBanUser }
func (UpdateUsernamePayload) EventType() string      { return EventUpdateUsername }
func (StartScreenSharePayload) EventType() string    { return EventStartScreenShare }
func (StopScreenSharePayload) EventType() string     { return EventStopScreenShare }
func (ScreenShareRequestPayload) EventType() string  { return EventScreenShareRequest }
func (ScreenShareResponsePayload) EventType() string { return EventScreenShareResponse }
func (WebRTCOfferPayload) EventType() string         { return EventWebRTCOffer }
func (WebRTCAnswerPayload) EventType() string        { return EventWebRTCAnswer }
func (WebRTCICECandidatePayload) EventType() string  { return EventWebRTCICECandidate }

func (JoinRoomPayload) clientEvent()            {}
func (LeaveRoomPayload) clientEvent()           {}
func (RequestInitialStatePayload) clientEvent() {}
func (PlayerStateChangePayload) clientEvent()   {}
func (ControllerStatePayload) clientEvent()     {}
func (ChatMessagePayload) clientEvent()         {}
func (ChangeVideoPayload) clientEvent()         {}
func (AddToPlaylistPayload) clientEvent()       {}
func (RemovePlaylistItemPayload) clientEvent()  {}
func (MovePlaylistItemPayload) clientEvent()    {}
func (PlayNextInQueuePayload) clientEvent()     {}
func (MakeModeratorPayload) clientEvent()       {}
func (RemoveModeratorPayload) clientEvent()     {}
func (KickUserPayload) clientEvent()            {}
func (BanUserPayload) clientEvent()             {}
func (UpdateUsernamePayload) clientEvent()      {}
func (StartScreenSharePayload) clientEvent()    {}
func (StopScreenSharePayload) clientEvent()     {}
func (ScreenShareRequestPayload) clientEvent()  {}
func (ScreenShareResponsePayload) clientEvent() {}
func (WebRTCOfferPayload) clientEvent()         {}
func (WebRTCAnswerPayload) clientEvent()        {}
func (WebRTCICECandidatePayload) clientEvent()  {}

var clientDecoders = map[string]decoder[ClientEvent]{
	EventJoinRoom:            decodeAs[JoinRoomPayload, ClientEvent],
	EventLeaveRoom:           decodeAs[LeaveRoomPayload, ClientEvent],
	EventRequestInitialState: decodeAs[RequestInitialStatePayload, ClientEvent],
	EventPlayerStateChange:   decodeAs[PlayerStateChangePayload, ClientEvent],
	EventControllerState:     decodeAs[ControllerStatePayload, ClientEvent],
	EventChatMessage:         decodeAs[ChatMessagePayload, ClientEvent],
	EventChangeVideo:         decodeAs[ChangeVideoPayload, ClientEvent],
	EventAddToPlaylist:       decodeAs[AddToPlaylistPayload, ClientEvent],
	EventRemovePlaylistItem:  decodeAs[RemovePlaylistItemPayload, ClientEvent],
	EventMovePlaylistItem:    decodeAs[MovePlaylistItemPayload, ClientEvent],
	EventPlayNextInQueue:     decodeAs[PlayNextInQueuePayload, ClientEvent],
	EventMakeModerator:       decodeAs[MakeModeratorPayload, ClientEvent],
	EventRemoveModerator:     decodeAs[RemoveModeratorPayload, ClientEvent],
	EventKickUser:            decodeAs[KickUserPayload, ClientEvent],
	EventBanUser:             decodeAs[BanUserPayload, ClientEvent],
	EventUpdateUsername:      decodeAs[UpdateUsernamePayload, ClientEvent],
	EventStartScreenShare:    decodeAs[StartScreenSharePayload, ClientEvent],
	EventStopScreenShare:     decodeAs[StopScreenSharePayload, ClientEvent],
	EventScreenShareRequest:  decodeAs[ScreenShareRequestPayload, ClientEvent],
	EventScreenShareResponse: decodeAs[ScreenShareResponsePayload, ClientEvent],
	EventWebRTCOffer:         decodeAs[WebRTCOfferPayload, ClientEvent],
	EventWebRTCAnswer:        decodeAs[WebRTCAnswerPayload, ClientEvent],
	EventWebRTCICECandidate:  decodeAs[WebRTCICECandidatePayload, ClientEvent],
}

// DecodeClientEvent turns an envelope into its typed client event.
func DecodeClientEvent(env Envelope) (ClientEvent, error) {
	decode, ok := clientDecoders[env.Type]
	if !ok {
		return nil, ErrUnknownEvent
	}
	return decode(env.Payload)
}

// IsClientEvent reports whether messageType names a client event.
func IsClientEvent(messageType string) bool {
	_, ok := clientDecoders[messageType]
	return ok
}
