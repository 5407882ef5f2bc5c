package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/service/room"
)

func (c controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, input protocol.JoinRoomPayload) error {
	sender := c.getConnFromCtx(ctx)
	if input.RoomID != sender.RoomID || input.UserID != sender.UserID {
		return ErrTokenMismatch
	}

	connectResp, err := c.roomService.ConnectMember(ctx, &room.ConnectMemberParams{
		Conn:     sender,
		Username: input.Username,
	})
	if err != nil {
		return fmt.Errorf("failed to connect member: %w", err)
	}

	if connectResp.Replaced != nil {
		_ = c.writeToConn(ctx, connectResp.Replaced, protocol.ErrorEvent{Message: "you joined from another connection"})
		_ = connectResp.Replaced.Close(CloseReplaced, "replaced")
	}

	if err := c.writeToConn(ctx, sender, protocol.ConnectedEvent{SocketID: sender.ID}); err != nil {
		return err
	}

	others := except(connectResp.Conns, sender.ID)
	if connectResp.ShareStopped {
		_ = c.broadcast(ctx, others, protocol.ScreenShareStoppedEvent{})
	}

	if err := c.broadcast(ctx, connectResp.Conns, protocol.MembersUpdateEvent{Members: connectResp.Members}); err != nil {
		return fmt.Errorf("failed to broadcast members update: %w", err)
	}

	if connectResp.SystemMessage != nil {
		_ = c.broadcast(ctx, others, protocol.ChatMessageEvent{ChatMessage: *connectResp.SystemMessage})
	}
	c.denyShareRequests(ctx, connectResp.DroppedRequests)

	if connectResp.Sharer != nil {
		_ = c.writeToConn(ctx, sender, protocol.ScreenShareStartedEvent{SharerID: connectResp.SharerID})
		if err := c.writeToConn(ctx, connectResp.Sharer, protocol.InitiateWebRTCPeerEvent{NewPeerSocketID: sender.ID}); err != nil {
			return fmt.Errorf("failed to notify sharer: %w", err)
		}
	}

	return nil
}

func (c controller) handleLeaveRoom(ctx context.Context, _ *websocket.Conn, input protocol.LeaveRoomPayload) error {
	sender := c.getConnFromCtx(ctx)
	if input.RoomID != sender.RoomID || input.UserID != sender.UserID {
		return ErrTokenMismatch
	}

	resp, err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{Conn: sender})
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	c.announceLeave(ctx, resp.Conns, resp.Members, resp.SystemMessage, resp.ShareStopped)
	c.denyShareRequests(ctx, resp.DroppedRequests)

	return nil
}

func (c controller) handleUpdateUsername(ctx context.Context, _ *websocket.Conn, input protocol.UpdateUsernamePayload) error {
	sender := c.getConnFromCtx(ctx)
	if input.UserID != sender.UserID {
		return room.ErrPermissionDenied
	}

	resp, err := c.roomService.UpdateUsername(ctx, &room.UpdateUsernameParams{
		Sender:      sender,
		NewUsername: input.NewUsername,
	})
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}

	return c.broadcastMembersChanged(ctx, &resp)
}

func (c controller) handleMakeModerator(ctx context.Context, _ *websocket.Conn, input protocol.MakeModeratorPayload) error {
	resp, err := c.roomService.MakeModerator(ctx, &room.UpdateRoleParams{
		Sender:       c.getConnFromCtx(ctx),
		TargetUserID: input.TargetUserID,
	})
	if err != nil {
		return fmt.Errorf("failed to make moderator: %w", err)
	}

	return c.broadcastMembersChanged(ctx, &resp)
}

func (c controller) handleRemoveModerator(ctx context.Context, _ *websocket.Conn, input protocol.RemoveModeratorPayload) error {
	resp, err := c.roomService.RemoveModerator(ctx, &room.UpdateRoleParams{
		Sender:       c.getConnFromCtx(ctx),
		TargetUserID: input.TargetUserID,
	})
	if err != nil {
		return fmt.Errorf("failed to remove moderator: %w", err)
	}

	return c.broadcastMembersChanged(ctx, &resp)
}

func (c controller) broadcastMembersChanged(ctx context.Context, resp *room.MembersChangedResponse) error {
	if err := c.broadcast(ctx, resp.Conns, protocol.MembersUpdateEvent{Members: resp.Members}); err != nil {
		return fmt.Errorf("failed to broadcast members update: %w", err)
	}

	if resp.SystemMessage != nil {
		_ = c.broadcast(ctx, resp.Conns, protocol.ChatMessageEvent{ChatMessage: *resp.SystemMessage})
	}

	return nil
}

func (c controller) handleKickUser(ctx context.Context, _ *websocket.Conn, input protocol.KickUserPayload) error {
	resp, err := c.roomService.KickUser(ctx, &room.RemoveUserParams{
		Sender:       c.getConnFromCtx(ctx),
		TargetUserID: input.TargetUserID,
	})
	if err != nil {
		return fmt.Errorf("failed to kick user: %w", err)
	}

	if resp.Target != nil {
		_ = c.writeToConn(ctx, resp.Target, protocol.KickedEvent{Message: "you have been kicked from the room"})
		_ = resp.Target.Close(CloseRemoved, "kicked")
	}

	c.announceLeave(ctx, resp.Conns, resp.Members, resp.SystemMessage, resp.ShareStopped)

	return nil
}

func (c controller) handleBanUser(ctx context.Context, _ *websocket.Conn, input protocol.BanUserPayload) error {
	resp, err := c.roomService.BanUser(ctx, &room.RemoveUserParams{
		Sender:       c.getConnFromCtx(ctx),
		TargetUserID: input.TargetUserID,
	})
	if err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}

	if resp.Target != nil {
		_ = c.writeToConn(ctx, resp.Target, protocol.BannedEvent{Message: "you have been banned from the room"})
		_ = resp.Target.Close(CloseRemoved, "banned")
	}

	c.announceLeave(ctx, resp.Conns, resp.Members, resp.SystemMessage, resp.ShareStopped)

	return nil
}

func (c controller) handleRequestInitialState(ctx context.Context, _ *websocket.Conn, _ protocol.RequestInitialStatePayload) error {
	sender := c.getConnFromCtx(ctx)

	resp, err := c.roomService.RequestInitialState(ctx, &room.RequestInitialStateParams{Sender: sender})
	if err != nil {
		return fmt.Errorf("failed to request initial state: %w", err)
	}

	if resp.Controller != nil {
		if err := c.writeToConn(ctx, resp.Controller, protocol.GetControllerStateEvent{RequesterID: sender.ID}); err == nil {
			return nil
		}
		c.logger.InfoContext(ctx, "controller unreachable, sending stored state")
	}

	return c.writeToConn(ctx, sender, protocol.InitialStateEvent{SyncState: protocol.SyncState{
		PlayerState: resp.State,
		VideoURL:    resp.VideoURL,
	}})
}

func (c controller) handleControllerState(ctx context.Context, _ *websocket.Conn, input protocol.ControllerStatePayload) error {
	resp, err := c.roomService.AnswerControllerState(ctx, &room.AnswerControllerStateParams{
		Sender:      c.getConnFromCtx(ctx),
		RequesterID: input.RequesterID,
		State:       input.State,
	})
	if err != nil {
		return fmt.Errorf("failed to answer controller state: %w", err)
	}

	return c.writeToConn(ctx, resp.Requester, protocol.InitialStateEvent{SyncState: protocol.SyncState{
		PlayerState: resp.State,
		VideoURL:    resp.VideoURL,
	}})
}

func (c controller) handlePlayerStateChange(ctx context.Context, _ *websocket.Conn, input protocol.PlayerStateChangePayload) error {
	resp, err := c.roomService.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		Sender: c.getConnFromCtx(ctx),
		State:  input.State,
	})
	if err != nil {
		return fmt.Errorf("failed to update player state: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, protocol.SyncPlayerStateEvent{SyncState: protocol.SyncState{
		PlayerState: resp.State,
		VideoURL:    resp.VideoURL,
	}}); err != nil {
		return fmt.Errorf("failed to broadcast player state: %w", err)
	}
	c.metrics.RecordSyncBroadcast()

	return nil
}

func (c controller) handleChangeVideo(ctx context.Context, _ *websocket.Conn, input protocol.ChangeVideoPayload) error {
	resp, err := c.roomService.ChangeVideo(ctx, &room.ChangeVideoParams{
		Sender:   c.getConnFromCtx(ctx),
		VideoURL: input.VideoURL,
	})
	if err != nil {
		return fmt.Errorf("failed to change video: %w", err)
	}

	return c.broadcastVideoChanged(ctx, &resp, false)
}

func (c controller) handlePlayNextInQueue(ctx context.Context, _ *websocket.Conn, input protocol.PlayNextInQueuePayload) error {
	resp, err := c.roomService.PlayNext(ctx, &room.PlayNextParams{
		Sender: c.getConnFromCtx(ctx),
		Mode:   input.Mode,
	})
	if err != nil {
		return fmt.Errorf("failed to play next video: %w", err)
	}

	return c.broadcastVideoChanged(ctx, &resp, true)
}

func (c controller) broadcastVideoChanged(ctx context.Context, resp *room.VideoChangedResponse, withPlaylist bool) error {
	if err := c.broadcast(ctx, resp.Conns, protocol.VideoUpdateEvent{VideoURL: resp.VideoURL}); err != nil {
		return fmt.Errorf("failed to broadcast video update: %w", err)
	}

	_ = c.broadcast(ctx, resp.Conns, protocol.HistoryUpdateEvent{History: resp.History})
	if withPlaylist {
		_ = c.broadcast(ctx, resp.Conns, protocol.PlaylistUpdateEvent{Playlist: resp.Playlist})
	}

	return nil
}

func (c controller) handleAddToPlaylist(ctx context.Context, _ *websocket.Conn, input protocol.AddToPlaylistPayload) error {
	resp, err := c.roomService.AddToPlaylist(ctx, &room.PlaylistItemParams{
		Sender:   c.getConnFromCtx(ctx),
		VideoURL: input.VideoURL,
	})
	if err != nil {
		return fmt.Errorf("failed to add to playlist: %w", err)
	}

	return c.broadcast(ctx, resp.Conns, protocol.PlaylistUpdateEvent{Playlist: resp.Playlist})
}

func (c controller) handleRemovePlaylistItem(ctx context.Context, _ *websocket.Conn, input protocol.RemovePlaylistItemPayload) error {
	resp, err := c.roomService.RemovePlaylistItem(ctx, &room.PlaylistItemParams{
		Sender:   c.getConnFromCtx(ctx),
		VideoURL: input.VideoURL,
	})
	if err != nil {
		return fmt.Errorf("failed to remove playlist item: %w", err)
	}

	return c.broadcast(ctx, resp.Conns, protocol.PlaylistUpdateEvent{Playlist: resp.Playlist})
}

func (c controller) handleMovePlaylistItem(ctx context.Context, _ *websocket.Conn, input protocol.MovePlaylistItemPayload) error {
	resp, err := c.roomService.MovePlaylistItem(ctx, &room.MovePlaylistItemParams{
		Sender:    c.getConnFromCtx(ctx),
		VideoURL:  input.VideoURL,
		Direction: input.Direction,
	})
	if err != nil {
		return fmt.Errorf("failed to move playlist item: %w", err)
	}

	return c.broadcast(ctx, resp.Conns, protocol.PlaylistUpdateEvent{Playlist: resp.Playlist})
}

func (c controller) handleChatMessage(ctx context.Context, _ *websocket.Conn, input protocol.ChatMessagePayload) error {
	resp, err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		Sender:   c.getConnFromCtx(ctx),
		Text:     input.Text,
		ReplyTo:  input.ReplyTo,
		ClientID: input.ClientID,
	})
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, protocol.ChatMessageEvent{ChatMessage: resp.Message}); err != nil {
		return fmt.Errorf("failed to broadcast chat message: %w", err)
	}
	c.metrics.RecordChatMessage()

	return nil
}

func (c controller) handleStartScreenShare(ctx context.Context, _ *websocket.Conn, _ protocol.StartScreenSharePayload) error {
	resp, err := c.roomService.StartScreenShare(ctx, &room.ScreenShareParams{Sender: c.getConnFromCtx(ctx)})
	if err != nil {
		return fmt.Errorf("failed to start screen share: %w", err)
	}

	return c.broadcast(ctx, resp.Conns, protocol.ScreenShareStartedEvent{SharerID: resp.SharerID})
}

func (c controller) handleStopScreenShare(ctx context.Context, _ *websocket.Conn, _ protocol.StopScreenSharePayload) error {
	resp, err := c.roomService.StopScreenShare(ctx, &room.ScreenShareParams{Sender: c.getConnFromCtx(ctx)})
	if err != nil {
		return fmt.Errorf("failed to stop screen share: %w", err)
	}

	return c.broadcast(ctx, resp.Conns, protocol.ScreenShareStoppedEvent{})
}

func (c controller) handleScreenShareRequest(ctx context.Context, _ *websocket.Conn, _ protocol.ScreenShareRequestPayload) error {
	resp, err := c.roomService.RequestScreenShare(ctx, &room.ScreenShareParams{Sender: c.getConnFromCtx(ctx)})
	if err != nil {
		return fmt.Errorf("failed to request screen share: %w", err)
	}

	return c.writeToConn(ctx, resp.Host, protocol.ScreenShareRequestEvent{
		RequesterID:       resp.RequesterID,
		RequesterUsername: resp.RequesterUsername,
	})
}

func (c controller) handleScreenShareResponse(ctx context.Context, _ *websocket.Conn, input protocol.ScreenShareResponsePayload) error {
	resp, err := c.roomService.RespondScreenShare(ctx, &room.RespondScreenShareParams{
		Sender:      c.getConnFromCtx(ctx),
		RequesterID: input.RequesterID,
		Accepted:    input.Accepted,
	})
	if err != nil {
		return fmt.Errorf("failed to respond to screen share request: %w", err)
	}

	if resp.Requester == nil {
		return nil
	}

	return c.writeToConn(ctx, resp.Requester, protocol.ScreenSharePermissionEvent{Granted: resp.Granted})
}

func (c controller) relay(ctx context.Context, targetSocketID, kind string, ev protocol.ServerEvent) error {
	target, err := c.roomService.ResolvePeer(ctx, &room.ResolvePeerParams{
		Sender:         c.getConnFromCtx(ctx),
		TargetSocketID: targetSocketID,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve %s target: %w", kind, err)
	}

	if err := c.writeToConn(ctx, target, ev); err != nil {
		return err
	}
	c.metrics.RecordSignalingRelay(kind)

	return nil
}

func (c controller) handleWebRTCOffer(ctx context.Context, _ *websocket.Conn, input protocol.WebRTCOfferPayload) error {
	return c.relay(ctx, input.ViewerSocketID, "offer", protocol.WebRTCOfferEvent{
		Offer:          input.Offer,
		SharerSocketID: c.getConnFromCtx(ctx).ID,
	})
}

func (c controller) handleWebRTCAnswer(ctx context.Context, _ *websocket.Conn, input protocol.WebRTCAnswerPayload) error {
	return c.relay(ctx, input.SharerSocketID, "answer", protocol.WebRTCAnswerEvent{
		Answer:         input.Answer,
		ViewerSocketID: c.getConnFromCtx(ctx).ID,
	})
}

func (c controller) handleWebRTCICECandidate(ctx context.Context, _ *websocket.Conn, input protocol.WebRTCICECandidatePayload) error {
	return c.relay(ctx, input.TargetSocketID, "ice-candidate", protocol.WebRTCICECandidateEvent{
		Candidate:      input.Candidate,
		SourceSocketID: c.getConnFromCtx(ctx).ID,
	})
}
