package mockbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/hue-gateway/hue"
	"github.com/upb/hue-gateway/services"
)

func newBridge(t *testing.T) (*Store, *hue.Client, *httptest.Server) {
	t.Helper()
	store := NewStore()
	srv := httptest.NewServer(NewServer(store, nil).Routes())
	t.Cleanup(srv.Close)

	client := hue.NewClient(hue.ClientConfig{
		BaseURL:  srv.URL,
		Username: "dev",
		Timeout:  time.Second,
	})
	return store, client, srv
}

func TestServer_ReadsThroughClient(t *testing.T) {
	_, client, _ := newBridge(t)
	ctx := context.Background()

	lights, err := client.Lights(ctx)
	require.NoError(t, err)
	assert.Len(t, lights, 12)

	id, room, err := client.FindRoom(ctx, "BEDROOM")
	require.NoError(t, err)
	assert.Equal(t, "3", id)
	assert.Equal(t, "Bedroom", room.Name)
}

func TestServer_SetLightState(t *testing.T) {
	store, client, _ := newBridge(t)

	results, err := client.SetLightState(context.Background(), "6", hue.LightState{On: hue.Bool(true), Sat: hue.Int(10)})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.JSONEq(t, `{"/lights/6/state/on": true}`, string(results[0].Success))

	l, _ := store.Light("6")
	assert.True(t, *l.State.On)
	assert.Equal(t, 10, *l.State.Sat)
}

func TestServer_SetGroupAction(t *testing.T) {
	store, client, _ := newBridge(t)

	_, err := client.SetGroupAction(context.Background(), "1", hue.LightState{On: hue.Bool(false)})
	require.NoError(t, err)

	for _, id := range []string{"1", "2", "3", "4"} {
		l, _ := store.Light(id)
		assert.False(t, *l.State.On, "light %s", id)
	}
}

func TestServer_Errors(t *testing.T) {
	_, client, srv := newBridge(t)
	ctx := context.Background()

	t.Run("unknown light", func(t *testing.T) {
		_, err := client.SetLightState(ctx, "99", hue.LightState{On: hue.Bool(true)})
		assert.True(t, services.IsNotFoundError(err))
		assert.Contains(t, err.Error(), "Light not found")
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := client.SetGroupAction(ctx, "99", hue.LightState{On: hue.Bool(true)})
		assert.True(t, services.IsNotFoundError(err))
	})

	t.Run("out of range value", func(t *testing.T) {
		_, err := client.SetLightState(ctx, "1", hue.LightState{Bri: hue.Int(300)})
		assert.True(t, services.IsValidationError(err))
		assert.Equal(t, "/api/dev/lights/1/state/bri", services.GetErrorDetails(err)["address"])
	})

	t.Run("invalid json", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/dev/lights/1/state", strings.NewReader("{"))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_UnknownResourceIsEmptyObject(t *testing.T) {
	_, _, srv := newBridge(t)

	for _, path := range []string{"/api/dev/lights/42", "/api/dev/groups/42"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Empty(t, body, path)
	}
}

func TestServer_MockRoutes(t *testing.T) {
	_, _, srv := newBridge(t)

	resp, err := http.Get(srv.URL + "/api/mock/groups_lights")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Groups map[string]hue.Group   `json:"groups"`
		Lights map[string][]hue.Light `json:"lights"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Groups, 3)
	assert.Len(t, body.Lights["Living Room"], 4)
}
