package protocol

// Client to server.
const (
	EventJoinRoom            = "joinRoom"
	EventLeaveRoom           = "leaveRoom"
	EventRequestInitialState = "requestInitialState"
	EventPlayerStateChange   = "playerStateChange"
	EventControllerState     = "controllerState"
	EventChangeVideo         = "changeVideo"
	EventAddToPlaylist       = "addToPlaylist"
	EventRemovePlaylistItem  = "removePlaylistItem"
	EventMovePlaylistItem    = "movePlaylistItem"
	EventPlayNextInQueue     = "playNextInQueue"
	EventMakeModerator       = "makeModerator"
	EventRemoveModerator     = "removeModerator"
	EventKickUser            = "kickUser"
	EventBanUser             = "banUser"
	EventUpdateUsername      = "updateUsername"
	EventStartScreenShare    = "start-screen-share"
	EventStopScreenShare     = "stop-screen-share"
	EventScreenShareResponse = "screenShareResponse"
)

// Both directions.
const (
	EventChatMessage        = "chatMessage"
	EventScreenShareRequest = "screenShareRequest"
	EventWebRTCOffer        = "webrtc-offer"
	EventWebRTCAnswer       = "webrtc-answer"
	EventWebRTCICECandidate = "webrtc-ice-candidate"
)

// Server to client.
const (
	EventConnected             = "connected"
	EventMembersUpdate         = "membersUpdate"
	EventHistoryUpdate         = "historyUpdate"
	EventVideoUpdate           = "videoUpdate"
	EventPlaylistUpdate        = "playlistUpdate"
	EventSyncPlayerState       = "syncPlayerState"
	EventInitialState          = "initialState"
	EventGetControllerState    = "getControllerState"
	EventKicked                = "kicked"
	EventBanned                = "banned"
	EventError                 = "error"
	EventRoomExpired           = "roomExpired"
	EventScreenShareStarted    = "screenShareStarted"
	EventScreenShareStopped    = "screenShareStopped"
	EventScreenSharePermission = "screenSharePermission"
	EventInitiateWebRTCPeer    = "initiate-webrtc-peer"
)

// Websocket close codes sent by the server.
const (
	CloseRemoved  = 4001
	CloseReplaced = 4002
	CloseExpired  = 4003
)

// SessionDescription matches the browser RTCSessionDescriptionInit shape.
type SessionDescription struct {
	Type string `json:"type" validate:"required,oneof=offer answer pranswer rollback"`
	SDP  string `json:"sdp"`
}

// ICECandidate matches the browser RTCIceCandidateInit shape.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}
