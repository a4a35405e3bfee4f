// Package api serves the live status of a run over HTTP
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	"code.linksmart.eu/dt/pupdate/progress"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

const (
	// query parameter keys
	_since = "since"
	_types = "types"
)

// Info describes the run being served
type Info struct {
	RunID        string    `json:"runId"`
	StartedAt    time.Time `json:"startedAt"`
	Remotes      []string  `json:"remotes"`
	RemoteUpdate bool      `json:"remoteUpdate"`
	LocalUpdate  bool      `json:"localUpdate"`
	LogDir       string    `json:"logDir,omitempty"`
}

type RESTAPI struct {
	info   Info
	bus    *progress.Bus
	router *mux.Router
	server *http.Server

	mutex     sync.RWMutex
	summaries map[string]model.Summary
}

func New(info Info, bus *progress.Bus) *RESTAPI {
	a := &RESTAPI{
		info:      info,
		bus:       bus,
		summaries: make(map[string]model.Summary),
	}
	a.setupRouter()
	return a
}

// Start serves the API in the background
func (a *RESTAPI) Start(bindAddr string) {
	a.server = &http.Server{Addr: bindAddr, Handler: a.Handler()}
	log.Println("RESTAPI: Binding to", bindAddr)
	go func() {
		err := a.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("RESTAPI: %s", err)
		}
	}()
}

func (a *RESTAPI) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router wrapped with the middleware chain
func (a *RESTAPI) Handler() http.Handler {
	chain := alice.New(
		recoveryMiddleware,
		loggingMiddleware,
		cors.AllowAll().Handler,
	)
	return chain.Then(a.router)
}

// SetSummary publishes the summary of a finished phase (remote or local)
func (a *RESTAPI) SetSummary(phase string, s model.Summary) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.summaries[phase] = s
}

func (a *RESTAPI) setupRouter() {
	r := mux.NewRouter()

	r.HandleFunc("/", a.index).Methods(http.MethodGet)
	r.HandleFunc("/summary", a.getSummary).Methods(http.MethodGet)
	r.HandleFunc("/events/history", a.getHistory).Methods(http.MethodGet)
	// health
	r.HandleFunc("/health", a.getHealth).Methods(http.MethodGet)

	// websocket
	r.HandleFunc("/events", a.websocket)

	a.router = r
}

func (a *RESTAPI) index(w http.ResponseWriter, r *http.Request) {
	b, err := json.Marshal(&a.info)
	if err != nil {
		HTTPResponseError(w, http.StatusInternalServerError, err)
		return
	}
	HTTPResponse(w, http.StatusOK, b)
}

func (a *RESTAPI) getSummary(w http.ResponseWriter, r *http.Request) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if len(a.summaries) == 0 {
		HTTPResponseError(w, http.StatusNotFound, "no phase has completed yet")
		return
	}
	b, err := json.Marshal(a.summaries)
	if err != nil {
		HTTPResponseError(w, http.StatusInternalServerError, err)
		return
	}
	HTTPResponse(w, http.StatusOK, b)
}

func (a *RESTAPI) getHistory(w http.ResponseWriter, r *http.Request) {
	var since int64
	if s := r.URL.Query().Get(_since); s != "" {
		var err error
		since, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			HTTPResponseError(w, http.StatusBadRequest, fmt.Sprintf("error parsing %s query parameter: %s", _since, err))
			return
		}
	}

	b, err := json.Marshal(a.bus.History(model.UnixTime(since)))
	if err != nil {
		HTTPResponseError(w, http.StatusInternalServerError, err)
		return
	}
	HTTPResponse(w, http.StatusOK, b)
}

func (a *RESTAPI) getHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK!"))
}

func (a *RESTAPI) websocket(w http.ResponseWriter, r *http.Request) {
	var types []model.EventType
	if typesQuery := r.URL.Query().Get(_types); typesQuery != "" {
		for _, t := range strings.Split(typesQuery, ",") {
			types = append(types, model.EventType(strings.TrimSpace(t)))
		}
	}

	// subscribe before the handshake completes, so that no event after it is missed
	events := a.bus.Subscribe(types...)
	defer a.bus.Unsubscribe(events) // the bus only uses TryPub, safe to unsubscribe from here

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true }, // allow all origins
	}
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("websocket: upgrade error:", err)
		return
	}
	defer c.Close()

	// the client sends nothing, reading only detects a closed connection
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case raw, open := <-events:
			if !open {
				c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
				return
			}
			b, _ := json.Marshal(raw)
			err = c.WriteMessage(websocket.TextMessage, b)
			if err != nil {
				log.Println("websocket: write error:", err)
				return
			}
			log.Debugln("websocket: sent event.")
		case <-gone:
			log.Debugln("websocket: client disconnected.")
			return
		}
	}
}

// HTTPResponseError serializes and writes an error response
//	If no message is provided, the status text will be set as the message
func HTTPResponseError(w http.ResponseWriter, code int, message ...interface{}) {
	if len(message) == 0 {
		message = make([]interface{}, 1)
		message[0] = http.StatusText(code)
	}
	log.Println("Request error:", message)
	body, _ := json.Marshal(&map[string]string{
		"error": fmt.Sprint(message...),
	})
	HTTPResponse(w, code, body)
}

// HTTPResponse writes a response
func HTTPResponse(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err := w.Write(body)
	if err != nil {
		log.Printf("HTTPResponse: error writing reponse: %s", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		nw := negroni.NewResponseWriter(w)
		next.ServeHTTP(nw, r)
		log.Printf("\"%s %s %s\" %d %d %v", r.Method, r.URL.String(), r.Proto, nw.Status(), nw.Size(), time.Since(start))
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC: %v\n%s", r, debug.Stack())
				HTTPResponseError(w, http.StatusInternalServerError, r)
			}
		}()
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
