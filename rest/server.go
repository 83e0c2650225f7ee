// Copyright 2026 The Rosvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rosvisor/rosvisor"
)

// Handler wraps a Supervisor, adding http.Handler functionality.
type Handler struct {
	s *rosvisor.Supervisor
	r *mux.Router
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

// errorOf maps the core error taxonomy onto HTTP status codes.
func errorOf(err error) *Error {
	switch {
	case errors.Is(err, rosvisor.ErrNotFound):
		return &Error{http.StatusNotFound, err.Error()}
	case errors.Is(err, rosvisor.ErrNameConflict):
		return &Error{http.StatusConflict, err.Error()}
	case errors.Is(err, rosvisor.ErrInvalidSpec),
		errors.Is(err, rosvisor.ErrInvalidState):
		return &Error{http.StatusBadRequest, err.Error()}
	default:
		// SpawnError and anything unexpected.
		return &Error{http.StatusInternalServerError, err.Error()}
	}
}

// watchParams extracts the Etag long-poll parameters: the serial the
// client already has, and how long it is willing to wait for a newer
// one.
func watchParams(r *http.Request) (int64, time.Duration, bool) {
	tag := r.Header.Get("If-None-Match")
	if tag == "" {
		return 0, 0, false
	}
	old, err := strconv.ParseInt(tag, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	secs, _ := strconv.Atoi(r.URL.Query().Get("timeout"))
	return old, time.Duration(secs) * time.Second, true
}

func (h *Handler) getInfo(w http.ResponseWriter, r *http.Request) {
	if old, expire, ok := watchParams(r); ok {
		if h.s.WatchSerial(old, expire) == old {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	info := h.s.GetInfo()
	w.Header().Set("Etag", strconv.FormatInt(info.Serial, 10))
	h.writeJson(w, info)
}

func (h *Handler) launchNode(w http.ResponseWriter, r *http.Request) {
	var spec rosvisor.LaunchSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
		return
	}
	if _, err := h.s.Launch(spec); err != nil {
		h.writeError(w, errorOf(err))
		return
	}
	h.writeJson(w, ok)
}

func (h *Handler) listNodes(w http.ResponseWriter, r *http.Request) {
	if old, expire, ok := watchParams(r); ok {
		if h.s.WatchNodes(old, expire) == old {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Etag", strconv.FormatInt(h.s.ListSerial(), 10))
	h.writeJson(w, h.s.Names())
}

func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["node"]
	status, err := h.s.Status(name)
	if err != nil {
		h.writeError(w, errorOf(err))
		return
	}
	h.writeJson(w, status)
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["node"]
	n, ok := h.s.GetNode(name)
	if !ok {
		h.writeError(w, errorOf(rosvisor.ErrNotFound))
		return
	}
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		since, _ = strconv.ParseInt(v, 10, 64)
	}
	if old, expire, wok := watchParams(r); wok {
		if n.WatchLog(old, expire) == old {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	recs, id := n.GetLog(since)
	w.Header().Set("Etag", strconv.FormatInt(id, 10))
	if recs == nil {
		recs = []rosvisor.LogRecord{}
	}
	h.writeJson(w, recs)
}

func (h *Handler) terminateNode(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["node"]
	if err := h.s.Terminate(name); err != nil {
		h.writeError(w, errorOf(err))
		return
	}
	h.writeJson(w, ok)
}

func (h *Handler) removeNode(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["node"]
	if err := h.s.Remove(name); err != nil {
		h.writeError(w, errorOf(err))
		return
	}
	h.writeJson(w, ok)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func NewHandler(s *rosvisor.Supervisor) *Handler {
	r := mux.NewRouter()
	h := &Handler{s: s, r: r}
	r.HandleFunc("/", h.getInfo).Methods("GET")
	r.HandleFunc("/nodes", h.listNodes).Methods("GET")
	r.HandleFunc("/nodes", h.launchNode).Methods("POST")
	r.HandleFunc("/nodes/{node}", h.getNode).Methods("GET")
	r.HandleFunc("/nodes/{node}", h.removeNode).Methods("DELETE")
	r.HandleFunc("/nodes/{node}/log", h.getLog).Methods("GET")
	r.HandleFunc("/nodes/{node}/terminate", h.terminateNode).Methods("POST")
	return h
}
