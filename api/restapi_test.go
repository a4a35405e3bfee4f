package api

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	"code.linksmart.eu/dt/pupdate/progress"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*RESTAPI, *progress.Bus, *httptest.Server) {
	bus := progress.NewBus("run1")
	a := New(Info{RunID: "run1", Remotes: []string{"a", "b"}, RemoteUpdate: true}, bus)
	ts := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		bus.Close()
		ts.Close()
	})
	return a, bus, ts
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := ioutil.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, b
}

func TestIndex(t *testing.T) {
	_, _, ts := newTestServer(t)

	code, b := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, code)
	var info Info
	require.NoError(t, json.Unmarshal(b, &info))
	assert.Equal(t, "run1", info.RunID)
	assert.Equal(t, []string{"a", "b"}, info.Remotes)
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t)
	code, b := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK!", string(b))
}

func TestSummary(t *testing.T) {
	a, _, ts := newTestServer(t)

	code, b := get(t, ts.URL+"/summary")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(b), "error")

	a.SetSummary("remote", model.Summary{RunID: "run1", Total: 2, Succeeded: []string{"a"}, Failed: []string{"b"}})

	code, b = get(t, ts.URL+"/summary")
	require.Equal(t, http.StatusOK, code)
	var summaries map[string]model.Summary
	require.NoError(t, json.Unmarshal(b, &summaries))
	assert.Equal(t, []string{"b"}, summaries["remote"].Failed)
	assert.Equal(t, 2, summaries["remote"].Total)
}

func TestHistory(t *testing.T) {
	_, bus, ts := newTestServer(t)
	bus.TargetStarted("a")
	bus.TargetFinished("a", true, time.Second)

	code, b := get(t, ts.URL+"/events/history")
	require.Equal(t, http.StatusOK, code)
	var events []model.Event
	require.NoError(t, json.Unmarshal(b, &events))
	require.Len(t, events, 2)
	assert.Equal(t, model.EventTargetStarted, events[0].Type)
	assert.Equal(t, int64(1000), events[1].ElapsedMs)

	code, _ = get(t, ts.URL+"/events/history?since=abc")
	assert.Equal(t, http.StatusBadRequest, code)

	code, b = get(t, ts.URL+"/events/history?since=99999999999999")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", string(b))
}

func TestWebsocket(t *testing.T) {
	_, bus, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events?types=target_finished,progress"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()

	bus.TargetStarted("a") // filtered
	bus.TargetFinished("a", false, 0)
	bus.OverallProgress(1, 2)

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	var e model.Event
	require.NoError(t, c.ReadJSON(&e))
	assert.Equal(t, model.EventTargetFinished, e.Type)
	assert.Equal(t, "a", e.Target)
	assert.Equal(t, "run1", e.RunID)

	require.NoError(t, c.ReadJSON(&e))
	assert.Equal(t, model.EventProgress, e.Type)
	assert.Equal(t, 1, e.Completed)

	// closing the bus ends the stream
	bus.Close()
	_, _, err = c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestWebsocket_BusAlreadyClosed(t *testing.T) {
	_, bus, ts := newTestServer(t)
	bus.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestRecovery(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"boom"}`, w.Body.String())
}
