package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Refresh reasons.
const (
	ReasonManual   = "manual"
	ReasonSchedule = "schedule"
	ReasonStartup  = "startup"
)

var ErrInvalidMessage = errors.New("invalid refresh request")

// RefreshRequest asks the worker to pull the data set into the mirror.
// An empty Years list means every year the upstream has.
type RefreshRequest struct {
	ID          uuid.UUID `json:"id"`
	Reason      string    `json:"reason"`
	Years       []int     `json:"years,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewRefreshRequest(reason string, years ...int) RefreshRequest {
	return RefreshRequest{
		ID:          uuid.New(),
		Reason:      reason,
		Years:       years,
		RequestedAt: time.Now().UTC(),
	}
}

// Full reports whether the request covers every year.
func (r RefreshRequest) Full() bool {
	return len(r.Years) == 0
}

func (r RefreshRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// RefreshRequestFromJSON decodes a message body. Requests without an id
// are rejected.
func RefreshRequestFromJSON(data []byte) (RefreshRequest, error) {
	var req RefreshRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return RefreshRequest{}, errors.Join(ErrInvalidMessage, err)
	}
	if req.ID == uuid.Nil {
		return RefreshRequest{}, ErrInvalidMessage
	}
	return req, nil
}
