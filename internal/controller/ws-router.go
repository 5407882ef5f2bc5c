package controller

import (
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New(
		wsrouter.WithValidator(c.validate.Struct),
		wsrouter.WithErrorHandler(c.handleWSError),
	)
	mux.Use(
		c.wsRequestIdWSMw(),
		c.loggerWSMw(),
		c.tracingWSMw(),
		c.rateLimitWSMw(),
	)

	// membership
	wsrouter.Handle(mux, protocol.EventJoinRoom, c.handleJoinRoom)
	wsrouter.Handle(mux, protocol.EventLeaveRoom, c.handleLeaveRoom)
	wsrouter.Handle(mux, protocol.EventUpdateUsername, c.handleUpdateUsername)
	wsrouter.Handle(mux, protocol.EventMakeModerator, c.handleMakeModerator)
	wsrouter.Handle(mux, protocol.EventRemoveModerator, c.handleRemoveModerator)
	wsrouter.Handle(mux, protocol.EventKickUser, c.handleKickUser)
	wsrouter.Handle(mux, protocol.EventBanUser, c.handleBanUser)

	// player
	wsrouter.Handle(mux, protocol.EventRequestInitialState, c.handleRequestInitialState)
	wsrouter.Handle(mux, protocol.EventControllerState, c.handleControllerState)
	wsrouter.Handle(mux, protocol.EventPlayerStateChange, c.handlePlayerStateChange)

	// video
	wsrouter.Handle(mux, protocol.EventChangeVideo, c.handleChangeVideo)
	wsrouter.Handle(mux, protocol.EventPlayNextInQueue, c.handlePlayNextInQueue)
	wsrouter.Handle(mux, protocol.EventAddToPlaylist, c.handleAddToPlaylist)
	wsrouter.Handle(mux, protocol.EventRemovePlaylistItem, c.handleRemovePlaylistItem)
	wsrouter.Handle(mux, protocol.EventMovePlaylistItem, c.handleMovePlaylistItem)

	// chat
	wsrouter.Handle(mux, protocol.EventChatMessage, c.handleChatMessage)

	// screen share
	wsrouter.Handle(mux, protocol.EventStartScreenShare, c.handleStartScreenShare)
	wsrouter.Handle(mux, protocol.EventStopScreenShare, c.handleStopScreenShare)
	wsrouter.Handle(mux, protocol.EventScreenShareRequest, c.handleScreenShareRequest)
	wsrouter.Handle(mux, protocol.EventScreenShareResponse, c.handleScreenShareResponse)
	wsrouter.Handle(mux, protocol.EventWebRTCOffer, c.handleWebRTCOffer)
	wsrouter.Handle(mux, protocol.EventWebRTCAnswer, c.handleWebRTCAnswer)
	wsrouter.Handle(mux, protocol.EventWebRTCICECandidate, c.handleWebRTCICECandidate)

	return mux
}
