// Package flash carries user-visible notices and navigation targets produced
// by user-facing operations back to the HTTP layer.
package flash

import (
	"encoding/json"
	"net/http"
	"sync"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is a transient, dismissible notification.
type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Sink receives notices and navigation from an operation.
type Sink interface {
	Notify(kind Kind, message string)
	Navigate(path string)
}

// Success sends a success notice to s.
func Success(s Sink, message string) {
	s.Notify(KindSuccess, message)
}

// Error sends an error notice to s.
func Error(s Sink, message string) {
	s.Notify(KindError, message)
}

// Recorder is a Sink that collects everything for a single request.
type Recorder struct {
	mu       sync.Mutex
	notices  []Notice
	redirect string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Kind: kind, Message: message})
}

// Navigate records the target; the last call wins.
func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirect = path
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *Recorder) Redirect() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirect
}

// Result is the JSON envelope for user-facing operations.
type Result struct {
	Success       bool        `json:"success"`
	Redirect      string      `json:"redirect,omitempty"`
	Notifications []Notice    `json:"notifications"`
	Data          interface{} `json:"data,omitempty"`
}

// Write renders the recorder as a Result. Failed operations use 422 unless status overrides it.
func Write(w http.ResponseWriter, rec *Recorder, success bool, data interface{}) {
	status := http.StatusOK
	if !success {
		status = http.StatusUnprocessableEntity
	}
	WriteStatus(w, status, rec, success, data)
}

func WriteStatus(w http.ResponseWriter, status int, rec *Recorder, success bool, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Result{
		Success:       success,
		Redirect:      rec.Redirect(),
		Notifications: rec.Notices(),
		Data:          data,
	})
}
