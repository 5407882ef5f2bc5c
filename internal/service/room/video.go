package room

import (
	"context"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type VideoChangedResponse struct {
	VideoURL string
	History  []string
	// Playlist is set when the video came from the queue.
	Playlist []string
	Conns    []*connection.Conn
}

type ChangeVideoParams struct {
	Sender   *connection.Conn
	VideoURL string
}

func (s service) ChangeVideo(ctx context.Context, params *ChangeVideoParams) (VideoChangedResponse, error) {
	v, err := s.viewAsController(ctx, params.Sender)
	if err != nil {
		return VideoChangedResponse{}, err
	}

	change, err := s.roomRepo.ChangeVideo(ctx, &room.ChangeVideoParams{
		RoomID:    params.Sender.RoomID,
		VideoURL:  params.VideoURL,
		UpdatedAt: s.now(),
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to change video", "error", err)
		return VideoChangedResponse{}, s.mapRepoErr(err)
	}

	return VideoChangedResponse{
		VideoURL: change.VideoURL,
		History:  change.History,
		Conns:    v.conns,
	}, nil
}

type PlayNextParams struct {
	Sender *connection.Conn
	Mode   domain.AdvanceMode
}

func (s service) PlayNext(ctx context.Context, params *PlayNextParams) (VideoChangedResponse, error) {
	v, err := s.viewAsController(ctx, params.Sender)
	if err != nil {
		return VideoChangedResponse{}, err
	}

	change, err := s.roomRepo.AdvancePlaylist(ctx, &room.AdvancePlaylistParams{
		RoomID:    params.Sender.RoomID,
		Shuffle:   params.Mode == domain.AdvanceShuffle,
		Pick:      s.pick(),
		UpdatedAt: s.now(),
	})
	if err != nil {
		return VideoChangedResponse{}, s.mapRepoErr(err)
	}

	return VideoChangedResponse{
		VideoURL: change.VideoURL,
		History:  change.History,
		Playlist: nonNil(change.Playlist),
		Conns:    v.conns,
	}, nil
}

type PlaylistItemParams struct {
	Sender   *connection.Conn
	VideoURL string
}

type PlaylistResponse struct {
	Playlist []string
	Conns    []*connection.Conn
}

func (s service) AddToPlaylist(ctx context.Context, params *PlaylistItemParams) (PlaylistResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return PlaylistResponse{}, err
	}

	playlist, err := s.roomRepo.AddToPlaylist(ctx, &room.AddToPlaylistParams{
		RoomID:   params.Sender.RoomID,
		VideoURL: params.VideoURL,
		Limit:    s.playlistLimit,
	})
	if err != nil {
		return PlaylistResponse{}, s.mapRepoErr(err)
	}

	return PlaylistResponse{Playlist: playlist, Conns: v.conns}, nil
}

func (s service) RemovePlaylistItem(ctx context.Context, params *PlaylistItemParams) (PlaylistResponse, error) {
	v, err := s.viewAsController(ctx, params.Sender)
	if err != nil {
		return PlaylistResponse{}, err
	}

	playlist, err := s.roomRepo.RemoveFromPlaylist(ctx, &room.RemoveFromPlaylistParams{
		RoomID:   params.Sender.RoomID,
		VideoURL: params.VideoURL,
	})
	if err != nil {
		return PlaylistResponse{}, s.mapRepoErr(err)
	}

	return PlaylistResponse{Playlist: nonNil(playlist), Conns: v.conns}, nil
}

type MovePlaylistItemParams struct {
	Sender    *connection.Conn
	VideoURL  string
	Direction domain.Direction
}

func (s service) MovePlaylistItem(ctx context.Context, params *MovePlaylistItemParams) (PlaylistResponse, error) {
	v, err := s.viewAsController(ctx, params.Sender)
	if err != nil {
		return PlaylistResponse{}, err
	}

	playlist, err := s.roomRepo.MovePlaylistItem(ctx, &room.MovePlaylistItemParams{
		RoomID:    params.Sender.RoomID,
		VideoURL:  params.VideoURL,
		Direction: params.Direction,
	})
	if err != nil {
		return PlaylistResponse{}, s.mapRepoErr(err)
	}

	return PlaylistResponse{Playlist: playlist, Conns: v.conns}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
