package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu    sync.Mutex
	sent  []string
	down  atomic.Bool
	getMe atomic.Int32
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.down.Load() {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		f.getMe.Add(1)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Goals","username":"goals_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.sent = append(f.sent, r.Form.Get("chat_id")+":"+r.Form.Get("text"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":10,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func TestReply(t *testing.T) {
	api := &fakeBotAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, err := NewClientWithEndpoint("123:abc", srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	assert.Equal(t, "goals_bot", c.Username())

	require.NoError(t, c.Reply(context.Background(), 42, "You are signed in."))
	assert.Equal(t, []string{"42:You are signed in."}, api.sent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.Reply(ctx, 42, "late"))
}

func TestLazyClientRecoversAfterOutage(t *testing.T) {
	api := &fakeBotAPI{}
	api.down.Store(true)
	srv := httptest.NewServer(api)
	defer srv.Close()

	now := time.Now()
	l := NewLazyClientWithEndpoint("123:abc", srv.URL+"/bot%s/%s", 30*time.Second)
	l.now = func() time.Time { return now }

	assert.Error(t, l.Reply(context.Background(), 42, "first"))

	// Telegram is back, but the retry interval has not passed yet.
	api.down.Store(false)
	assert.Error(t, l.Reply(context.Background(), 42, "second"))
	assert.Equal(t, int32(0), api.getMe.Load())

	now = now.Add(31 * time.Second)
	require.NoError(t, l.Reply(context.Background(), 42, "third"))
	require.NoError(t, l.Reply(context.Background(), 42, "fourth"))
	assert.Equal(t, int32(1), api.getMe.Load())
	assert.Equal(t, []string{"42:third", "42:fourth"}, api.sent)
}
