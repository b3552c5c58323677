package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// decodeTriggers parses HX-Trigger into event name -> raw payload.
func decodeTriggers(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	if raw == "" {
		t.Fatal("HX-Trigger header not set")
	}
	events := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v (%s)", err, raw)
	}
	return events
}

func TestHTMXResponse_NoEventsNoHeader(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().BodyHTML("<p>ok</p>").Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("HX-Trigger"); got != "" {
		t.Errorf("HX-Trigger = %q, want empty", got)
	}
	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestHTMXResponse_RefreshEvents(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"in process", "", `{}`},
		{"queued", "abc-123", `{"id":"abc-123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHTMXResponse().
				TriggerDataRefreshed(tt.id).
				TriggerSuccessNotification("Dados atualizados").
				RefreshStatus("Dados atualizados", false).
				Write(w)

			events := decodeTriggers(t, w)
			if got := string(events[EventDataRefreshed]); got != tt.want {
				t.Errorf("%s payload = %s, want %s", EventDataRefreshed, got, tt.want)
			}
			var n notification
			if err := json.Unmarshal(events[EventShowNotification], &n); err != nil {
				t.Fatalf("decode notification: %v", err)
			}
			if n.Type != NotificationSuccess || n.Message != "Dados atualizados" || n.Duration != 3000 {
				t.Errorf("notification = %+v", n)
			}
			if !strings.Contains(w.Body.String(), `class="refresh-status"`) {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}

func TestHTMXResponse_LastNotificationWins(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerSuccessNotification("first").
		TriggerErrorNotification("second").
		Write(w)

	var n notification
	if err := json.Unmarshal(decodeTriggers(t, w)[EventShowNotification], &n); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if n.Type != NotificationError || n.Message != "second" || n.Duration != 5000 {
		t.Errorf("notification = %+v", n)
	}
}

func TestHTMXResponse_NotificationDurations(t *testing.T) {
	tests := []struct {
		kind NotificationType
		want int
	}{
		{NotificationSuccess, 3000},
		{NotificationInfo, 3000},
		{NotificationWarning, 4000},
		{NotificationError, 5000},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHTMXResponse().TriggerNotification(tt.kind, "m").Write(w)

			var n notification
			if err := json.Unmarshal(decodeTriggers(t, w)[EventShowNotification], &n); err != nil {
				t.Fatalf("decode notification: %v", err)
			}
			if n.Type != tt.kind || n.Duration != tt.want {
				t.Errorf("notification = %+v, want type %s duration %d", n, tt.kind, tt.want)
			}
		})
	}
}

func TestHTMXResponse_RefreshStatusEscapes(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().RefreshStatus("<b>falhou</b>", true).Write(w)

	body := w.Body.String()
	if !strings.Contains(body, `class="refresh-status error"`) {
		t.Errorf("missing error class: %q", body)
	}
	if strings.Contains(body, "<b>") {
		t.Errorf("label not escaped: %q", body)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
		message string
	}{
		{"not found", NotFoundError("Página não encontrada"), http.StatusNotFound, "Página não encontrada"},
		{"unavailable", ServiceUnavailableError("Sem ligação"), http.StatusServiceUnavailable, "Sem ligação"},
		{"internal", InternalServerError("Erro ao mostrar a vista"), http.StatusInternalServerError, "Erro ao mostrar a vista"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			want := `<div class="error">` + tt.message + `</div>`
			if w.Body.String() != want {
				t.Errorf("body = %q, want %q", w.Body.String(), want)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, "<script>alert('x')</script>").Write(w)

	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message not escaped: %q", w.Body.String())
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("POST").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "POST" {
		t.Errorf("Allow = %q, want POST", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}
