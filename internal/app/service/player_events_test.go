package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

func endEvent(guildID string, t *domain.Track, reason domain.TrackEndReason) domain.PlayerEvent {
	return domain.PlayerEvent{Type: domain.EventTrackEnd, GuildID: guildID, Track: t.Clone(), Reason: reason}
}

func currentID(t *testing.T, p *PlayerService, guildID string) string {
	t.Helper()
	snap, ok := p.Snapshot(guildID)
	require.True(t, ok)
	if snap.Current == nil {
		return ""
	}
	return snap.Current.Info.Identifier
}

func TestEvents_FinishedAdvancesQueue(t *testing.T) {
	f := newPlayerFixture()
	a, b := testTrack("a"), testTrack("b")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, b)

	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))
	assert.Equal(t, "b", currentID(t, f.player, "g1"))
	assert.Equal(t, []string{"a", "b"}, f.node.playedIDs())

	f.player.HandleEvent(bg, endEvent("g1", b, domain.EndFinished))
	assert.Equal(t, "", currentID(t, f.player, "g1"))
	assert.True(t, f.player.IdleArmed("g1"))
}

func TestEvents_NonAdvancingReasonsAreIgnored(t *testing.T) {
	f := newPlayerFixture()
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))

	for _, r := range []domain.TrackEndReason{domain.EndReplaced, domain.EndStopped, domain.EndCleanup} {
		f.player.HandleEvent(bg, endEvent("g1", a, r))
	}
	assert.Equal(t, "a", currentID(t, f.player, "g1"))
	assert.Equal(t, []string{"a"}, f.node.playedIDs())
}

func TestEvents_StaleEndIsIgnored(t *testing.T) {
	f := newPlayerFixture()
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))
	_, _ = f.enqueue("g1", "song c", false, testTrack("c"))

	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))
	// mismo evento repetido: no debe saltar "b"
	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))

	assert.Equal(t, "b", currentID(t, f.player, "g1"))
}

func TestEvents_LoopTrackReplays(t *testing.T) {
	f := newPlayerFixture()
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))
	f.player.ToggleLoop("g1", "track")

	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))
	assert.Equal(t, "a", currentID(t, f.player, "g1"))
	assert.Equal(t, []string{"a", "a"}, f.node.playedIDs())

	// loadFailed nunca repite
	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndLoadFailed))
	assert.Equal(t, "b", currentID(t, f.player, "g1"))
}

func TestEvents_LoopQueueRotates(t *testing.T) {
	f := newPlayerFixture()
	a, b := testTrack("a"), testTrack("b")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, b)
	f.player.ToggleLoop("g1", "queue")

	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))
	f.player.HandleEvent(bg, endEvent("g1", b, domain.EndFinished))

	assert.Equal(t, "a", currentID(t, f.player, "g1"))
	assert.Equal(t, []string{"a", "b", "a"}, f.node.playedIDs())
	assert.False(t, f.player.IdleArmed("g1"))
}

func TestEvents_StuckSkips(t *testing.T) {
	f := newPlayerFixture()
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))

	f.player.HandleEvent(bg, domain.PlayerEvent{Type: domain.EventTrackStuck, GuildID: "g1", Track: a.Clone()})

	assert.Equal(t, "b", currentID(t, f.player, "g1"))
	require.NotEmpty(t, f.notes.messages())
	assert.Contains(t, f.notes.messages()[0], "stuck")
}

func TestEvents_VoiceClosedTearsDown(t *testing.T) {
	var torn []string
	f := newPlayerFixture(OnTeardown(func(g string) { torn = append(torn, g) }))
	_, _ = f.enqueue("g1", "song a", false, testTrack("a"))

	f.player.HandleEvent(bg, domain.PlayerEvent{Type: domain.EventVoiceClosed, GuildID: "g1", Message: "4014"})

	_, ok := f.player.Snapshot("g1")
	assert.False(t, ok)
	assert.Equal(t, []string{"g1"}, torn)
	assert.Equal(t, []string{"g1"}, f.voice.leaves)
}

func TestEvents_UnknownGuildIsANoop(t *testing.T) {
	f := newPlayerFixture()
	assert.NotPanics(t, func() {
		f.player.HandleEvent(bg, endEvent("ghost", testTrack("a"), domain.EndFinished))
		f.player.HandleEvent(bg, domain.PlayerEvent{Type: domain.EventTrackException, GuildID: "ghost"})
		f.player.HandleEvent(bg, domain.PlayerEvent{Type: domain.EventQueueEnd, GuildID: "ghost"})
		f.player.HandleEvent(bg, domain.PlayerEvent{Type: "Whatever", GuildID: "ghost"})
	})
	assert.Zero(t, f.timers.count())
}

func TestEvents_RunConsumesUntilClosed(t *testing.T) {
	f := newPlayerFixture()
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))

	events := make(chan domain.PlayerEvent, 1)
	done := make(chan struct{})
	go func() {
		f.player.Run(context.Background(), events)
		close(done)
	}()

	events <- endEvent("g1", a, domain.EndFinished)
	close(events)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the channel closed")
	}
	assert.Equal(t, "b", currentID(t, f.player, "g1"))
}

// ---------- watchdog ----------

func TestWatchdog_ArmingTwiceKeepsOneTimer(t *testing.T) {
	f := newPlayerFixture()
	_, err := f.player.EnsureSession("g1", "v", "t")
	require.NoError(t, err)

	f.player.HandleEvent(bg, domain.PlayerEvent{Type: domain.EventQueueEnd, GuildID: "g1"})
	f.player.HandleEvent(bg, domain.PlayerEvent{Type: domain.EventQueueEnd, GuildID: "g1"})

	assert.Equal(t, 2, f.timers.count())
	assert.Equal(t, 1, f.timers.live())
	assert.Equal(t, time.Minute, f.timers.timers[1].d)
}

func TestWatchdog_ExpiryTearsDownIdleSession(t *testing.T) {
	var torn []string
	f := newPlayerFixture(OnTeardown(func(g string) { torn = append(torn, g) }))
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))
	require.True(t, f.player.IdleArmed("g1"))

	f.timers.fireLast()

	_, ok := f.player.Snapshot("g1")
	assert.False(t, ok)
	assert.Equal(t, []string{"g1"}, torn)
	assert.Equal(t, []string{"g1"}, f.node.destroys)
	msgs := f.notes.messages()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "inactivity")
}

func TestWatchdog_StaleExpiryIsANoop(t *testing.T) {
	f := newPlayerFixture()
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))
	require.Equal(t, 1, f.timers.live())

	// llega algo nuevo antes de que expire
	_, err := f.enqueue("g1", "song b", false, testTrack("b"))
	require.NoError(t, err)
	assert.Zero(t, f.timers.live())

	// el callback viejo corre igual (Stop llegó tarde)
	f.timers.fireLast()

	assert.Equal(t, "b", currentID(t, f.player, "g1"))
	assert.Empty(t, f.node.destroys)
}

func TestWatchdog_ActivityCancelsTimer(t *testing.T) {
	f := newPlayerFixture()
	_, _ = f.enqueue("g1", "song a", false, testTrack("a"))
	_, _ = f.enqueue("g1", "list", false, testTrack("b"), testTrack("c"))

	arm := func() {
		f.player.mu.Lock()
		f.player.armIdleLocked(f.player.sessions["g1"])
		f.player.mu.Unlock()
		require.True(t, f.player.IdleArmed("g1"))
	}

	activities := map[string]func(){
		"pause":   func() { _, _ = f.player.Pause(bg, "g1") },
		"resume":  func() { _, _ = f.player.Resume(bg, "g1") },
		"seek":    func() { _, _ = f.player.SeekToStart(bg, "g1") },
		"loop":    func() { f.player.ToggleLoop("g1", "none") },
		"shuffle": func() { f.player.Shuffle("g1") },
	}
	for _, name := range []string{"pause", "resume", "seek", "loop", "shuffle"} {
		arm()
		activities[name]()
		assert.False(t, f.player.IdleArmed("g1"), name)
	}

	arm()
	f.player.ClearQueue("g1")
	assert.False(t, f.player.IdleArmed("g1"), "clear")
}

func TestWatchdog_DisabledWithNonPositiveTimeout(t *testing.T) {
	f := newPlayerFixture(WithIdleTimeout(0))
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)

	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))

	assert.Zero(t, f.timers.count())
	assert.False(t, f.player.IdleArmed("g1"))
}

func TestEvents_RejectedNextTrackMovesOn(t *testing.T) {
	f := newPlayerFixture()
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))
	_, _ = f.enqueue("g1", "song c", false, testTrack("c"))
	f.node.failIDs = map[string]bool{"b": true}

	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))

	assert.Equal(t, "c", currentID(t, f.player, "g1"))
	assert.Equal(t, []string{"a", "c"}, f.node.playedIDs())
	snap, _ := f.player.Snapshot("g1")
	assert.Empty(t, snap.Queue)
	assert.False(t, f.player.IdleArmed("g1"))
	msgs := f.notes.messages()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "Couldn't play")
}

func TestEvents_EveryNextTrackRejectedArmsWatchdog(t *testing.T) {
	f := newPlayerFixture()
	a := testTrack("a")
	_, _ = f.enqueue("g1", "song a", false, a)
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))
	_, _ = f.enqueue("g1", "song c", false, testTrack("c"))
	f.node.failIDs = map[string]bool{"b": true, "c": true}

	f.player.HandleEvent(bg, endEvent("g1", a, domain.EndFinished))

	snap, ok := f.player.Snapshot("g1")
	require.True(t, ok)
	assert.Nil(t, snap.Current)
	assert.Empty(t, snap.Queue)
	assert.True(t, f.player.IdleArmed("g1"), "a silent session must not hold the voice channel forever")

	f.timers.fireLast()
	_, ok = f.player.Snapshot("g1")
	assert.False(t, ok)
}

func TestPlayer_SkipOverRejectedTrack(t *testing.T) {
	f := newPlayerFixture()
	_, _ = f.enqueue("g1", "song a", false, testTrack("a"))
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))
	_, _ = f.enqueue("g1", "song c", false, testTrack("c"))
	f.node.failIDs = map[string]bool{"b": true}

	done, err := f.player.Skip(bg, "g1")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "c", currentID(t, f.player, "g1"))
}

func TestWatchdog_ActivityOnEmptySessionRearms(t *testing.T) {
	f := newPlayerFixture()
	_, err := f.player.EnsureSession("g1", "v", "t")
	require.NoError(t, err)
	f.player.HandleEvent(bg, domain.PlayerEvent{Type: domain.EventQueueEnd, GuildID: "g1"})
	require.True(t, f.player.IdleArmed("g1"))

	_, ok := f.player.ToggleLoop("g1", "queue")
	require.True(t, ok)

	assert.True(t, f.player.IdleArmed("g1"), "nothing to play, the session stays watched")
	assert.Equal(t, 1, f.timers.live())

	f.timers.fireLast()
	_, ok = f.player.Snapshot("g1")
	assert.False(t, ok)
}

func TestWatchdog_ClearingAStalledQueueRearms(t *testing.T) {
	f := newPlayerFixture()
	_, _ = f.enqueue("g1", "song a", false, testTrack("a"))
	_, _ = f.enqueue("g1", "song b", false, testTrack("b"))
	stall(t, f, "g1")
	require.False(t, f.player.IdleArmed("g1"))

	require.True(t, f.player.ClearQueue("g1"))
	assert.True(t, f.player.IdleArmed("g1"))
}
