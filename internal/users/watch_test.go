package users_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluenthttp/fluenthttp/internal/users"
)

func TestServer_WatchUsers_StreamsChanges(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/users"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Mutations after the subscription show up as change events.
	created := createUser(t, s, `{"name":"Ada","job":"Engineer","age":36}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev users.ChangeEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "created", ev.Type)
	require.NotNil(t, ev.User)
	assert.Equal(t, created.ID, ev.User.ID)

	w := doJSON(t, s, http.MethodDelete, "/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "deleted", ev.Type)
}

func TestServer_WatchUsers_SlowConsumerDoesNotBlockWrites(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/users"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Flood well past the subscriber buffer without reading; every create
	// must still complete promptly.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			w := doJSON(t, s, http.MethodPost, "/users", `{"name":"Ada","job":"Engineer","age":36}`)
			if w.Code != http.StatusCreated {
				t.Errorf("create %d failed with %d", i, w.Code)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("creates blocked behind a slow websocket consumer")
	}
}
