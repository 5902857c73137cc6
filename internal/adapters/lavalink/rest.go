package lavalink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

// Search resuelve query contra /v4/loadtracks. empty = resultado vacío, no error.
func (n *Node) Search(ctx context.Context, query string, source domain.SearchSource) (domain.SearchResult, error) {
	q := url.Values{}
	q.Set("identifier", source.Apply(query))

	var dto loadResultDTO
	if err := n.doJSON(ctx, http.MethodGet, "/v4/loadtracks", q, nil, &dto); err != nil {
		return domain.SearchResult{}, err
	}
	return decodeLoadResult(dto)
}

func decodeLoadResult(dto loadResultDTO) (domain.SearchResult, error) {
	res := domain.SearchResult{SelectedIndex: -1}
	switch dto.LoadType {
	case loadTrack:
		var t trackDTO
		if err := json.Unmarshal(dto.Data, &t); err != nil {
			return res, fmt.Errorf("decode track: %w", err)
		}
		res.Tracks = []*domain.Track{t.toDomain()}
	case loadSearch:
		var ts []trackDTO
		if err := json.Unmarshal(dto.Data, &ts); err != nil {
			return res, fmt.Errorf("decode search: %w", err)
		}
		for _, t := range ts {
			res.Tracks = append(res.Tracks, t.toDomain())
		}
	case loadPlaylist:
		var p playlistDTO
		if err := json.Unmarshal(dto.Data, &p); err != nil {
			return res, fmt.Errorf("decode playlist: %w", err)
		}
		res.IsPlaylist = true
		res.PlaylistName = p.Info.Name
		res.SelectedIndex = p.Info.SelectedTrack
		for _, t := range p.Tracks {
			res.Tracks = append(res.Tracks, t.toDomain())
		}
	case loadEmpty:
	case loadError:
		var ex exceptionDTO
		_ = json.Unmarshal(dto.Data, &ex)
		return res, &LoadError{Message: ex.Message, Severity: ex.Severity, Cause: ex.Cause}
	default:
		return res, fmt.Errorf("unknown loadType %q", dto.LoadType)
	}
	return res, nil
}

func (n *Node) updatePlayer(ctx context.Context, guildID string, upd playerUpdate, noReplace bool) error {
	path, err := n.playerPath(guildID)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("noReplace", fmt.Sprint(noReplace))
	return n.doJSON(ctx, http.MethodPatch, path, q, upd, nil)
}

// Play reemplaza lo que esté sonando. requester y fallback viajan en userData.
func (n *Node) Play(ctx context.Context, guildID string, track *domain.Track, volume int) error {
	enc := track.Encoded
	paused := false
	return n.updatePlayer(ctx, guildID, playerUpdate{
		Track:  &playerTrackUpdate{Encoded: &enc, UserData: userDataFrom(track)},
		Volume: &volume,
		Paused: &paused,
	}, false)
}

func (n *Node) Stop(ctx context.Context, guildID string) error {
	return n.updatePlayer(ctx, guildID, playerUpdate{Track: &playerTrackUpdate{}}, false)
}

func (n *Node) SetPaused(ctx context.Context, guildID string, paused bool) error {
	return n.updatePlayer(ctx, guildID, playerUpdate{Paused: &paused}, false)
}

func (n *Node) Seek(ctx context.Context, guildID string, position time.Duration) error {
	ms := position.Milliseconds()
	return n.updatePlayer(ctx, guildID, playerUpdate{Position: &ms}, false)
}

func (n *Node) SetVolume(ctx context.Context, guildID string, volume int) error {
	return n.updatePlayer(ctx, guildID, playerUpdate{Volume: &volume}, false)
}

// UpdateVoice reenvía los datos de voz de Discord para que el nodo se conecte.
func (n *Node) UpdateVoice(ctx context.Context, guildID, token, endpoint, sessionID string) error {
	return n.updatePlayer(ctx, guildID, playerUpdate{
		Voice: &voiceDTO{Token: token, Endpoint: endpoint, SessionID: sessionID},
	}, true)
}

// Destroy: un player inexistente no es error.
func (n *Node) Destroy(ctx context.Context, guildID string) error {
	path, err := n.playerPath(guildID)
	if err != nil {
		return err
	}
	err = n.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (n *Node) configureResuming(ctx context.Context, sessionID string) error {
	if n.resumeTimeout <= 0 {
		return nil
	}
	return n.doJSON(ctx, http.MethodPatch, "/v4/sessions/"+url.PathEscape(sessionID), nil,
		sessionUpdate{Resuming: true, Timeout: int(n.resumeTimeout.Seconds())}, nil)
}
