package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(context.Context) error {
	*s.events = append(*s.events, "start:"+s.name)
	return s.startErr
}

func (s *recordingService) Stop(context.Context) error {
	*s.events = append(*s.events, "stop:"+s.name)
	return s.stopErr
}

func TestManager_StartOrderStopReverse(t *testing.T) {
	var events []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordingService{name: name, events: &events}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	var events []string
	m := NewManager()
	_ = m.Register(&recordingService{name: "a", events: &events})
	_ = m.Register(&recordingService{name: "b", startErr: errors.New("boom"), events: &events})
	_ = m.Register(&recordingService{name: "c", events: &events})

	if err := m.Start(context.Background()); err == nil {
		t.Fatalf("expected start failure")
	}

	want := []string{"start:a", "start:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestManager_RegistrationGuards(t *testing.T) {
	var events []string
	m := NewManager()

	if err := m.Register(nil); err == nil {
		t.Fatalf("expected nil service rejected")
	}
	if err := m.Register(&recordingService{name: "a", events: &events}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(&recordingService{name: "a", events: &events}); err == nil {
		t.Fatalf("expected duplicate name rejected")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop(context.Background())

	if err := m.Register(&recordingService{name: "b", events: &events}); err == nil {
		t.Fatalf("expected post-start registration rejected")
	}
}

func TestNoopService(t *testing.T) {
	svc := NoopService{ServiceName: "noop"}
	if svc.Name() != "noop" {
		t.Fatalf("unexpected name %s", svc.Name())
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
