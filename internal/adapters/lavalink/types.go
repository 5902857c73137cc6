package lavalink

import (
	"encoding/json"
	"time"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

type trackInfoDTO struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"` // ms
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ISRC       string `json:"isrc"`
	SourceName string `json:"sourceName"`
}

// userDataDTO viaja con el track y vuelve en los eventos.
type userDataDTO struct {
	RequesterID      string `json:"requesterId,omitempty"`
	RequesterTag     string `json:"requesterTag,omitempty"`
	FallbackAttempts int    `json:"fallbackAttempts,omitempty"`
	FallbackOf       string `json:"fallbackOf,omitempty"`
}

type trackDTO struct {
	Encoded  string       `json:"encoded"`
	Info     trackInfoDTO `json:"info"`
	UserData *userDataDTO `json:"userData,omitempty"`
}

func (t trackDTO) toDomain() *domain.Track {
	out := &domain.Track{
		Encoded: t.Encoded,
		Info: domain.TrackInfo{
			Identifier: t.Info.Identifier,
			Title:      t.Info.Title,
			Author:     t.Info.Author,
			URI:        t.Info.URI,
			ISRC:       t.Info.ISRC,
			SourceName: t.Info.SourceName,
			Length:     time.Duration(t.Info.Length) * time.Millisecond,
			IsStream:   t.Info.IsStream,
			IsSeekable: t.Info.IsSeekable,
		},
	}
	if ud := t.UserData; ud != nil {
		out.Requester = domain.Requester{ID: ud.RequesterID, Tag: ud.RequesterTag}
		out.FallbackAttempts = ud.FallbackAttempts
		out.FallbackOf = ud.FallbackOf
	}
	return out
}

func userDataFrom(t *domain.Track) *userDataDTO {
	ud := userDataDTO{
		RequesterID:      t.Requester.ID,
		RequesterTag:     t.Requester.Tag,
		FallbackAttempts: t.FallbackAttempts,
		FallbackOf:       t.FallbackOf,
	}
	if ud == (userDataDTO{}) {
		return nil
	}
	return &ud
}

// ---------- /loadtracks ----------

const (
	loadTrack    = "track"
	loadPlaylist = "playlist"
	loadSearch   = "search"
	loadEmpty    = "empty"
	loadError    = "error"
)

type loadResultDTO struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type playlistDTO struct {
	Info struct {
		Name          string `json:"name"`
		SelectedTrack int    `json:"selectedTrack"`
	} `json:"info"`
	Tracks []trackDTO `json:"tracks"`
}

type exceptionDTO struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

// ---------- PATCH player ----------

type playerTrackUpdate struct {
	Encoded  *string      `json:"encoded"` // nil = detener
	UserData *userDataDTO `json:"userData,omitempty"`
}

type voiceDTO struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

type playerUpdate struct {
	Track    *playerTrackUpdate `json:"track,omitempty"`
	Position *int64             `json:"position,omitempty"`
	Volume   *int               `json:"volume,omitempty"`
	Paused   *bool              `json:"paused,omitempty"`
	Voice    *voiceDTO          `json:"voice,omitempty"`
}

type sessionUpdate struct {
	Resuming bool `json:"resuming"`
	Timeout  int  `json:"timeout"` // segundos
}

// ---------- websocket ----------

type wsMessage struct {
	Op string `json:"op"`

	// ready
	Resumed   bool   `json:"resumed"`
	SessionID string `json:"sessionId"`

	// event
	Type      string        `json:"type"`
	GuildID   string        `json:"guildId"`
	Track     *trackDTO     `json:"track"`
	Reason    string        `json:"reason"`
	Exception *exceptionDTO `json:"exception"`
	Threshold int64         `json:"thresholdMs"`
	Code      int           `json:"code"`
	ByRemote  bool          `json:"byRemote"`
}
