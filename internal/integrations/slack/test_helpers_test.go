package slackbot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/slack-go/slack"

	"sevaflow/internal/catalog"
	"sevaflow/internal/extract"
	"sevaflow/internal/intake"
	"sevaflow/internal/lifecycle"
	"sevaflow/internal/routing"
	"sevaflow/internal/storage/sqlite"
)

func newTestService(t *testing.T) *intake.Service {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cat := catalog.Default()
	return intake.NewService(cat, extract.New(cat, nil), routing.New(cat), lifecycle.New(store), store)
}

type mockSlack struct {
	mu         sync.Mutex
	ephemeral  []string
	messages   []string
	dmChannels []string
}

func (m *mockSlack) lastEphemeral(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ephemeral) == 0 {
		t.Fatal("expected chat.postEphemeral to be called")
	}
	return m.ephemeral[len(m.ephemeral)-1]
}

func newMockSlackAPI(t *testing.T) (*slack.Client, *mockSlack) {
	t.Helper()

	mock := &mockSlack{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/")
		_ = r.ParseForm()
		mock.mu.Lock()
		defer mock.mu.Unlock()
		switch path {
		case "users.info":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"user": map[string]any{
					"id":        r.Form.Get("user"),
					"name":      "asha",
					"real_name": "Asha Real",
					"profile": map[string]any{
						"display_name": "Asha Display",
					},
				},
			})
		case "users.list":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"members": []map[string]any{
					{"id": "U0MANAGER1", "name": "meera", "real_name": "Meera Singh", "profile": map[string]any{"display_name": "meera.s"}},
				},
			})
		case "conversations.open":
			mock.dmChannels = append(mock.dmChannels, r.Form.Get("users"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":      true,
				"channel": map[string]any{"id": "D_" + r.Form.Get("users")},
			})
		case "chat.postMessage":
			mock.messages = append(mock.messages, r.Form.Get("text"))
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": r.Form.Get("channel"), "ts": "1.23"})
		case "chat.postEphemeral":
			mock.ephemeral = append(mock.ephemeral, r.Form.Get("text"))
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "message_ts": "1.23"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	t.Cleanup(server.Close)

	return slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/api/")), mock
}
