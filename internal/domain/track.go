package domain

import (
	"strings"
	"time"
)

// SearchSource es el prefijo de búsqueda que entiende el nodo de audio.
type SearchSource string

const (
	SearchSourceNone         SearchSource = ""         // identificador/URL tal cual
	SearchSourceYouTube      SearchSource = "ytsearch" // video general
	SearchSourceYouTubeMusic SearchSource = "ytmsearch"
)

// Apply arma el identificador que se manda a loadtracks.
func (s SearchSource) Apply(query string) string {
	if s == SearchSourceNone {
		return query
	}
	return string(s) + ":" + query
}

// LoopMode de la sesión.
type LoopMode string

const (
	LoopNone  LoopMode = "none"
	LoopTrack LoopMode = "track"
	LoopQueue LoopMode = "queue"
)

func ParseLoopMode(raw string) (LoopMode, bool) {
	switch LoopMode(strings.ToLower(strings.TrimSpace(raw))) {
	case LoopNone:
		return LoopNone, true
	case LoopTrack:
		return LoopTrack, true
	case LoopQueue:
		return LoopQueue, true
	}
	return "", false
}

// Next devuelve el modo siguiente del ciclo none -> track -> queue -> none.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopNone:
		return LoopTrack
	case LoopTrack:
		return LoopQueue
	default:
		return LoopNone
	}
}

// Requester identifica a quien pidió el track.
type Requester struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}

// TrackInfo son los metadatos que devuelve el nodo de audio.
type TrackInfo struct {
	Identifier string        `json:"identifier"`
	Title      string        `json:"title"`
	Author     string        `json:"author"`
	URI        string        `json:"uri,omitempty"`
	ISRC       string        `json:"isrc,omitempty"`
	SourceName string        `json:"sourceName"`
	Length     time.Duration `json:"length"`
	IsStream   bool          `json:"isStream"`
	IsSeekable bool          `json:"isSeekable"`
}

// Track es una entrada reproducible. Encoded es opaco (lo genera el nodo).
type Track struct {
	Encoded   string    `json:"encoded"`
	Info      TrackInfo `json:"info"`
	Requester Requester `json:"requester"`

	// FallbackAttempts cuenta cuántas veces ya se sustituyó este track.
	FallbackAttempts int `json:"fallbackAttempts"`
	// FallbackOf es el identificador del track original cuando este es un sustituto.
	FallbackOf string `json:"fallbackOf,omitempty"`
}

// Clone copia el track (todos los campos son valores).
func (t *Track) Clone() *Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Label para mensajes: "Title — Author".
func (t *Track) Label() string {
	if t == nil {
		return ""
	}
	if t.Info.Author == "" {
		return t.Info.Title
	}
	return t.Info.Title + " — " + t.Info.Author
}

// SearchResult normaliza los distintos loadType del nodo.
type SearchResult struct {
	Tracks        []*Track
	IsPlaylist    bool
	PlaylistName  string
	SelectedIndex int // -1 si el playlist no trae selección
}

// Empty indica que la búsqueda no devolvió nada reproducible.
func (r SearchResult) Empty() bool { return len(r.Tracks) == 0 }

// Selected devuelve el track elegido del playlist (o el primero).
func (r SearchResult) Selected() (*Track, int) {
	if r.Empty() {
		return nil, -1
	}
	if r.IsPlaylist && r.SelectedIndex >= 0 && r.SelectedIndex < len(r.Tracks) {
		return r.Tracks[r.SelectedIndex], r.SelectedIndex
	}
	return r.Tracks[0], 0
}
