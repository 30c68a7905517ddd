package chatbot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Ask(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "any road closures?", r.URL.Query().Get("question"))
		assert.Equal(t, "23.81", r.URL.Query().Get("lat"))
		assert.Equal(t, "90.41", r.URL.Query().Get("long"))
		assert.Equal(t, "uid-1", r.URL.Query().Get("user_id"))

		_ = json.NewEncoder(w).Encode(Response{
			Question:         "any road closures?",
			Latitude:         23.81,
			Longitude:        90.41,
			Response:         "Mirpur road is closed near the stadium.",
			Status:           "success",
			UserID:           "uid-1",
			ConversationTurn: 2,
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/chat", srv.Client()).Ask(context.Background(), "uid-1", Request{
		Question: "any road closures?", Lat: 23.81, Lng: 90.41,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mirpur road is closed near the stadium.", resp.Response)
	assert.Equal(t, 2, resp.ConversationTurn)
}

func TestClient_AskUpstreamFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model offline", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Ask(context.Background(), "uid-1", Request{Question: "hi"})
	assert.True(t, models.IsCode(err, models.CodeUpstream))

	_, err = NewClient("", nil).Ask(context.Background(), "uid-1", Request{Question: "hi"})
	assert.True(t, models.IsCode(err, models.CodeUpstream))
}
