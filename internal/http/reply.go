// Package http serves the woordjes screens.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"woordjes/internal/services"
)

// Events the page scripts listen for. They travel in the HX-Trigger header.
const (
	eventAnswerChecked = "answer:checked"
	eventGameFinished  = "game:finished"
	eventFormReset     = "form:reset"
	eventToast         = "show-notification"
)

// ToastKind selects the style of a toast message.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastInfo    ToastKind = "info"
	ToastWarning ToastKind = "warning"
	ToastError   ToastKind = "error"
)

// Successes go away quickly; anything the player should read stays longer.
func (k ToastKind) lifetime() time.Duration {
	if k == ToastSuccess || k == ToastInfo {
		return 3 * time.Second
	}
	return 5 * time.Second
}

// Reply accumulates an htmx response: status, events, extra headers and an
// HTML fragment. Nothing reaches the client until Send.
type Reply struct {
	status int
	events map[string]any
	header http.Header
	html   string
}

func NewReply() *Reply {
	return &Reply{status: http.StatusOK, events: map[string]any{}, header: http.Header{}}
}

// ErrorReply is an escaped alert fragment with a matching error toast.
func ErrorReply(status int, msg string) *Reply {
	return NewReply().
		Status(status).
		Toast(ToastError, msg).
		HTML(`<div class="error" role="alert">` + template.HTMLEscapeString(msg) + `</div>`)
}

// ServiceErrorReply maps a services error to its status and player-facing
// message. Internal causes never reach the page.
func ServiceErrorReply(err error) *Reply {
	return ErrorReply(services.StatusOf(err), services.MessageOf(err))
}

func (r *Reply) Status(code int) *Reply {
	r.status = code
	return r
}

// Event queues a client-side event. detail must marshal to JSON; nil is sent
// as an empty object.
func (r *Reply) Event(name string, detail any) *Reply {
	if detail == nil {
		detail = struct{}{}
	}
	r.events[name] = detail
	return r
}

// AnswerChecked lets the page pick the right, wrong or streak sound.
func (r *Reply) AnswerChecked(correct bool, streak int) *Reply {
	return r.Event(eventAnswerChecked, map[string]any{"correct": correct, "streak": streak})
}

func (r *Reply) GameFinished(score int) *Reply {
	return r.Event(eventGameFinished, map[string]int{"score": score})
}

func (r *Reply) ResetForm() *Reply {
	return r.Event(eventFormReset, nil)
}

// Toast shows msg in the corner of the page. Only one toast per reply.
func (r *Reply) Toast(kind ToastKind, msg string) *Reply {
	return r.Event(eventToast, map[string]any{
		"type":     string(kind),
		"message":  msg,
		"duration": kind.lifetime().Milliseconds(),
	})
}

// Redirect makes htmx load url as a full page.
func (r *Reply) Redirect(url string) *Reply {
	r.header.Set("HX-Redirect", url)
	return r
}

func (r *Reply) HTML(fragment string) *Reply {
	r.header.Set("Content-Type", "text/html; charset=utf-8")
	r.html = fragment
	return r
}

// Send writes the reply. Events that fail to marshal are dropped rather
// than sent as a broken header.
func (r *Reply) Send(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range r.header {
		h[name] = values
	}
	if len(r.events) > 0 {
		if raw, err := json.Marshal(r.events); err == nil {
			h.Set("HX-Trigger", string(raw))
		}
	}
	w.WriteHeader(r.status)
	if r.html != "" {
		_, _ = w.Write([]byte(r.html))
	}
}
