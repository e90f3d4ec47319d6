package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/grandcat/zeroconf"
	"github.com/ilnaes/downstream/internal/auth"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/replica"
)

// TouchEvent is one finger event posted to /touch by a touch bridge.
type TouchEvent struct {
	Phase  string  `json:"phase"` // added, moved, removed
	Finger int32   `json:"finger"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
}

type Status struct {
	Frame     int32            `json:"frame"`
	Sprites   int64            `json:"sprites"`
	Clients   []string         `json:"clients"`
	Acks      map[string]int32 `json:"acks"`
	Uptime    string           `json:"uptime"`
	BytesSent string           `json:"bytes_sent"`
}

// Router serves the websocket endpoint (when the server sends over a hub),
// the touch bridge and the status page.
func (s *Server) Router(signer *auth.Signer) *mux.Router {
	r := mux.NewRouter()
	if hub, ok := s.link.(*Hub); ok {
		r.HandleFunc(common.WebsocketPath, signer.Middleware(auth.RoleRender, hub.ServeHTTP))
	}
	r.HandleFunc("/touch", signer.Middleware(auth.RoleTouch, s.touch)).Methods("POST")
	r.HandleFunc("/status", s.status).Methods("GET")
	return r
}

// Run serves http, announces itself over mDNS when configured and ticks
// until ctx ends. Restore is left to the caller so the app can bind its
// handlers to the restored sprites first.
func (s *Server) Run(ctx context.Context, signer *auth.Signer) error {
	srv := &http.Server{
		Handler:      s.Router(signer),
		Addr:         s.cfg.Server.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	if s.cfg.Server.Advertise {
		zc, err := s.advertise()
		if err != nil {
			s.log.Warn("mDNS registration failed", "error", err)
		} else {
			defer zc.Shutdown()
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Loop(loopCtx)
		close(done)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
		cancel()
	}
	<-done

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	srv.Shutdown(shutdownCtx)
	s.link.Close()
	if s.store != nil {
		s.store.Close(shutdownCtx)
	}
	return err
}

func (s *Server) advertise() (*zeroconf.Server, error) {
	_, portStr, err := net.SplitHostPort(s.cfg.Server.Addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	zc, err := zeroconf.Register(s.cfg.Server.Instance, common.ServiceType, "local.", port,
		[]string{"path=" + common.WebsocketPath}, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info("mDNS service registered", "instance", s.cfg.Server.Instance, "port", port)
	return zc, nil
}

func (s *Server) touch(w http.ResponseWriter, r *http.Request) {
	var events []TouchEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		http.Error(w, "Bad format", http.StatusBadRequest)
		return
	}

	for _, ev := range events {
		phase, ok := parsePhase(ev.Phase)
		if !ok {
			http.Error(w, fmt.Sprintf("Unknown phase %q", ev.Phase), http.StatusBadRequest)
			return
		}
		s.QueueInput(replica.Input{Phase: phase, Finger: ev.Finger, X: ev.X, Y: ev.Y})
	}
	w.WriteHeader(http.StatusAccepted)
}

func parsePhase(p string) (byte, bool) {
	switch p {
	case "added":
		return common.InputAdded, true
	case "moved":
		return common.InputMoved, true
	case "removed":
		return common.InputRemoved, true
	}
	return 0, false
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st := Status{
		Frame:     s.frame.Load(),
		Sprites:   s.sprites.Load(),
		Clients:   []string{},
		Acks:      make(map[string]int32),
		Uptime:    humanize.Time(s.start),
		BytesSent: humanize.Bytes(s.bytesSent.Load()),
	}
	if hub, ok := s.link.(*Hub); ok {
		st.Clients = hub.Clients()
	}
	s.al.Lock()
	for k, v := range s.acks {
		st.Acks[k] = v
	}
	s.al.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}
