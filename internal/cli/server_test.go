package cli

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramClientRequestsAreBounded(t *testing.T) {
	release := make(chan struct{})
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer api.Close()
	defer close(release)

	start := time.Now()
	_, err := newTelegramClient("token", api.URL+"/bot%s/%s", 100*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTelegramClientAuthorizes(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/getMe", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Zoo","username":"zoo_quiz_bot"}}`))
	}))
	defer api.Close()

	client, err := newTelegramClient("token", api.URL+"/bot%s/%s", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "zoo_quiz_bot", client.Self.UserName)
}
