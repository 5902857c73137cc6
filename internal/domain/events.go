package domain

// PlayerEventType es el tipo de notificación que emite el nodo de audio.
type PlayerEventType string

const (
	EventTrackStart     PlayerEventType = "TrackStartEvent"
	EventTrackEnd       PlayerEventType = "TrackEndEvent"
	EventTrackException PlayerEventType = "TrackExceptionEvent"
	EventTrackStuck     PlayerEventType = "TrackStuckEvent"
	EventQueueEnd       PlayerEventType = "QueueEndEvent"
	EventVoiceClosed    PlayerEventType = "WebSocketClosedEvent"
)

// TrackEndReason según el protocolo del nodo.
type TrackEndReason string

const (
	EndFinished   TrackEndReason = "finished"
	EndLoadFailed TrackEndReason = "loadFailed"
	EndStopped    TrackEndReason = "stopped"
	EndReplaced   TrackEndReason = "replaced"
	EndCleanup    TrackEndReason = "cleanup"
)

// MayStartNext: sólo finished/loadFailed avanzan la cola.
func (r TrackEndReason) MayStartNext() bool {
	return r == EndFinished || r == EndLoadFailed
}

// PlayerEvent llega por el stream de eventos del nodo.
type PlayerEvent struct {
	Type    PlayerEventType
	GuildID string
	Track   *Track
	Reason  TrackEndReason
	Message string // detalle de la excepción o del cierre
}
