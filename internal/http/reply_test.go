package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"woordjes/internal/services"
)

func sendReply(r *Reply) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.Send(w)
	return w
}

func decodeEvents(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	if raw == "" {
		t.Fatal("HX-Trigger header not set")
	}
	var events map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v (%s)", err, raw)
	}
	return events
}

func TestReply_Plain(t *testing.T) {
	w := sendReply(NewReply().HTML("<p>hoi</p>"))

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want 200", w.Code)
	}
	if w.Body.String() != "<p>hoi</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := w.Header().Get("HX-Trigger"); got != "" {
		t.Errorf("HX-Trigger set without events: %q", got)
	}
}

func TestReply_FinishingTurn(t *testing.T) {
	w := sendReply(NewReply().
		AnswerChecked(true, 4).
		GameFinished(120).
		Toast(ToastWarning, "Progress could not be saved"))

	events := decodeEvents(t, w)

	var checked struct {
		Correct bool `json:"correct"`
		Streak  int  `json:"streak"`
	}
	if err := json.Unmarshal(events["answer:checked"], &checked); err != nil || !checked.Correct || checked.Streak != 4 {
		t.Errorf("answer:checked = %s", events["answer:checked"])
	}

	var finished struct {
		Score int `json:"score"`
	}
	if err := json.Unmarshal(events["game:finished"], &finished); err != nil || finished.Score != 120 {
		t.Errorf("game:finished = %s", events["game:finished"])
	}

	var toast struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(events["show-notification"], &toast); err != nil {
		t.Fatalf("show-notification = %s", events["show-notification"])
	}
	if toast.Type != "warning" || toast.Duration != 5000 || toast.Message != "Progress could not be saved" {
		t.Errorf("toast = %+v", toast)
	}
}

func TestReply_ResetFormSendsEmptyDetail(t *testing.T) {
	events := decodeEvents(t, sendReply(NewReply().ResetForm()))
	if string(events["form:reset"]) != "{}" {
		t.Errorf("form:reset = %s, want {}", events["form:reset"])
	}
}

func TestReply_ToastLifetimes(t *testing.T) {
	tests := []struct {
		kind ToastKind
		want int
	}{
		{ToastSuccess, 3000},
		{ToastInfo, 3000},
		{ToastWarning, 5000},
		{ToastError, 5000},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			events := decodeEvents(t, sendReply(NewReply().Toast(tt.kind, "x")))
			var toast struct {
				Type     string `json:"type"`
				Duration int    `json:"duration"`
			}
			_ = json.Unmarshal(events["show-notification"], &toast)
			if toast.Type != string(tt.kind) || toast.Duration != tt.want {
				t.Errorf("toast = %+v, want %s/%d", toast, tt.kind, tt.want)
			}
		})
	}
}

func TestReply_Redirect(t *testing.T) {
	w := sendReply(NewReply().Redirect("/play/abc"))

	if got := w.Header().Get("HX-Redirect"); got != "/play/abc" {
		t.Errorf("HX-Redirect = %q, want /play/abc", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("redirect has a body: %q", w.Body.String())
	}
}

func TestErrorReply(t *testing.T) {
	w := sendReply(ErrorReply(http.StatusNotFound, "Unknown word"))

	if w.Code != http.StatusNotFound {
		t.Errorf("Status code = %d, want 404", w.Code)
	}
	if want := `<div class="error" role="alert">Unknown word</div>`; w.Body.String() != want {
		t.Errorf("Body = %q, want %q", w.Body.String(), want)
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Errorf("error toast missing: %s", w.Header().Get("HX-Trigger"))
	}
}

func TestErrorReply_EscapesHTML(t *testing.T) {
	body := sendReply(ErrorReply(http.StatusBadRequest, "<script>alert('xss')</script>")).Body.String()

	if strings.Contains(body, "<script>") {
		t.Error("error fragment did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("Body = %q", body)
	}
}

func TestServiceErrorReply(t *testing.T) {
	w := sendReply(ServiceErrorReply(&services.Error{
		Err:    errors.New("boom"),
		Status: http.StatusConflict,
		Msg:    "This game is already finished",
	}))
	if w.Code != http.StatusConflict {
		t.Errorf("Status code = %d, want 409", w.Code)
	}
	if !strings.Contains(w.Body.String(), "This game is already finished") {
		t.Errorf("Body = %q", w.Body.String())
	}

	w = sendReply(ServiceErrorReply(errors.New("raw failure")))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "raw failure") {
		t.Error("internal error text leaked to the player")
	}
}
