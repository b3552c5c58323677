package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HTMX events raised by the server. app.js listens for show-notification;
// every view section reloads itself on data:refreshed.
const (
	EventShowNotification = "show-notification"
	EventDataRefreshed    = "data:refreshed"
)

// NotificationType is the toast style rendered by app.js.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// toastDuration is how long each toast stays on screen, in milliseconds.
var toastDuration = map[NotificationType]int{
	NotificationSuccess: 3000,
	NotificationInfo:    3000,
	NotificationWarning: 4000,
	NotificationError:   5000,
}

// notification is the show-notification payload.
type notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

// refreshed is the data:refreshed payload. ID is set when the refresh was
// queued for the sync worker instead of run in process.
type refreshed struct {
	ID string `json:"id,omitempty"`
}

// HTMXResponseBuilder assembles a response: status, HTML body and the
// HX-Trigger events the page reacts to.
type HTMXResponseBuilder struct {
	status  int
	events  map[string]any
	header  http.Header
	body    string
	hasBody bool
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		events: make(map[string]any),
		header: make(http.Header),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// TriggerDataRefreshed makes every view on the page reload itself.
func (b *HTMXResponseBuilder) TriggerDataRefreshed(id string) *HTMXResponseBuilder {
	b.events[EventDataRefreshed] = refreshed{ID: id}
	return b
}

// TriggerNotification shows a toast. Only one toast is sent per response;
// the last call wins.
func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string) *HTMXResponseBuilder {
	b.events[EventShowNotification] = notification{
		Type:     kind,
		Message:  message,
		Duration: toastDuration[kind],
	}
	return b
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message)
}

// BodyHTML sets an already rendered HTML body.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = html
	b.hasBody = true
	return b
}

// RefreshStatus renders the fragment swapped into #refresh-status.
func (b *HTMXResponseBuilder) RefreshStatus(label string, failed bool) *HTMXResponseBuilder {
	class := "refresh-status"
	if failed {
		class += " error"
	}
	return b.BodyHTML(`<span class="` + class + `">` + template.HTMLEscapeString(label) + `</span>`)
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, values := range b.header {
		w.Header()[name] = values
	}
	if len(b.events) > 0 {
		if encoded, err := json.Marshal(b.events); err == nil {
			w.Header().Set("HX-Trigger", string(encoded))
		}
	}
	w.WriteHeader(b.status)
	if b.hasBody {
		_, _ = w.Write([]byte(b.body))
	}
}

// ErrorResponse renders message, escaped, inside an error box.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ServiceUnavailableError is returned when a refresh cannot reach the sync worker.
func ServiceUnavailableError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// MethodNotAllowedError answers 405 with the allowed methods in Allow.
func MethodNotAllowedError(allowed string) *HTMXResponseBuilder {
	b := NewHTMXResponse().Status(http.StatusMethodNotAllowed)
	b.header.Set("Allow", allowed)
	return b
}
