package domain

import "time"

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// ProposalPreview es la foto del track pedido, desacoplada del objeto vivo del nodo.
type ProposalPreview struct {
	Title      string
	URL        string
	Source     string
	IsPlaylist bool
	TrackCount int
}

// PreviewFromResult arma el preview a partir del resultado de búsqueda.
func PreviewFromResult(r SearchResult) ProposalPreview {
	t, _ := r.Selected()
	if t == nil {
		return ProposalPreview{}
	}
	p := ProposalPreview{
		Title:      t.Info.Title,
		URL:        t.Info.URI,
		Source:     t.Info.SourceName,
		IsPlaylist: r.IsPlaylist,
		TrackCount: len(r.Tracks),
	}
	if r.IsPlaylist && r.PlaylistName != "" {
		p.Title = r.PlaylistName
	}
	return p
}

// ProposalPayload es lo que manda quien sugiere un track.
type ProposalPayload struct {
	Query          string
	Preview        ProposalPreview
	Requester      Requester
	VoiceChannelID string
	TextChannelID  string
	Prepend        bool
}

// Proposal es una sugerencia pendiente de aprobación DJ.
// Todos los campos son valores: copiar el struct es una copia profunda.
type Proposal struct {
	ID         string
	GuildID    string
	Status     ProposalStatus
	CreatedAt  time.Time
	ResolvedAt time.Time

	ProposalPayload

	MessageID string
	ChannelID string
}
