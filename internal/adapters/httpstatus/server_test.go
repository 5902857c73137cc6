package httpstatus

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/dj-session-bot/internal/app/service"
	"github.com/jose-valero/dj-session-bot/internal/domain"
)

type stubConfigs map[string]domain.GuildConfig

func (s stubConfigs) Snapshot() map[string]domain.GuildConfig { return s }

type stubSessions map[string]service.SessionSnapshot

func (s stubSessions) Snapshot(guildID string) (service.SessionSnapshot, bool) {
	snap, ok := s[guildID]
	return snap, ok
}

type stubCounter map[string]int

func (s stubCounter) Count(guildID string) int { return s[guildID] }

func newTestServer() *Server {
	cfg := domain.DefaultGuildConfig()
	cfg.Enabled = true
	cfg.RoleID = "R"
	return New(":0",
		stubConfigs{"g1": cfg},
		stubSessions{"g1": {GuildID: "g1", Volume: 80, Loop: domain.LoopNone, Current: &domain.Track{Encoded: "e", Info: domain.TrackInfo{Title: "T"}}}},
		stubCounter{"g1": 2},
		nil,
	)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGuildStatus_Live(t *testing.T) {
	rec := get(t, newTestServer(), "/v1/guilds/g1")
	require.Equal(t, http.StatusOK, rec.Code)

	var out GuildStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Configured)
	assert.True(t, out.Config.Enabled)
	assert.Equal(t, "R", out.Config.RoleID)
	require.NotNil(t, out.Session)
	assert.Equal(t, "T", out.Session.Current.Info.Title)
	assert.Equal(t, 2, out.PendingProposals)
}

func TestGuildStatus_UnknownGuild(t *testing.T) {
	rec := get(t, newTestServer(), "/v1/guilds/nope")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Nil(t, raw["session"])
	assert.Equal(t, false, raw["configured"])
	assert.EqualValues(t, 0, raw["pendingProposals"])

	cfg := raw["config"].(map[string]any)
	assert.Equal(t, "vote", cfg["skipMode"])
}
