package services

import (
	"context"
	"errors"
	"testing"

	"recibos/internal/amqp"
)

type recordingPublisher struct {
	published []amqp.RefreshRequest
	err       error
}

func (p *recordingPublisher) PublishRefresh(_ context.Context, req amqp.RefreshRequest) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, req)
	return nil
}

func TestMirrorService_RequestRefresh(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewMirrorService(nil, nil)
	svc.publisher = pub

	req, err := svc.RequestRefresh(context.Background(), 2025)
	if err != nil {
		t.Fatalf("RequestRefresh: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].ID != req.ID {
		t.Fatalf("published = %+v", pub.published)
	}
	if req.Reason != amqp.ReasonManual || req.Full() {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestMirrorService_RequestRefreshWithoutBroker(t *testing.T) {
	svc := NewMirrorService(nil, nil)
	if _, err := svc.RequestRefresh(context.Background()); !errors.Is(err, ErrRefreshUnavailable) {
		t.Errorf("expected ErrRefreshUnavailable, got %v", err)
	}
}

func TestMirrorService_PublishFailure(t *testing.T) {
	svc := NewMirrorService(nil, nil)
	svc.publisher = &recordingPublisher{err: errors.New("circuit breaker is open")}
	if _, err := svc.RequestRefresh(context.Background()); err == nil {
		t.Error("expected publish error")
	}
}

func TestMirrorService_CloseNilComponents(t *testing.T) {
	if err := NewMirrorService(nil, nil).Close(); err != nil {
		t.Fatalf("Close should not return error with nil components: %v", err)
	}
}
