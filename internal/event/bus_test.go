package event

import (
	"testing"
	"time"
)

func statusEvent(planID string) TaskStatusChanged {
	return NewTaskStatusChanged(planID, "t1", "pending", "in_progress", 0, "", time.Now())
}

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(TypeTaskStatusChanged, func(Event) { order = append(order, "specific-1") })
	bus.SubscribeAll(func(Event) { order = append(order, "wildcard") })
	bus.Subscribe(TypeTaskStatusChanged, func(Event) { order = append(order, "specific-2") })

	bus.Publish(statusEvent("p1"))

	// Specific handlers fire before wildcard handlers, in registration order.
	want := []string{"specific-1", "specific-2", "wildcard"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestSubscribersOnlySeeTheirEventType(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(TypePhaseCompleted, func(e Event) { got = append(got, e.EventType()) })

	bus.Publish(statusEvent("p1"))
	bus.Publish(PhaseCompleted{PlanID: "p1", Phase: 0, Timestamp: time.Now()})

	if len(got) != 1 || got[0] != TypePhaseCompleted {
		t.Errorf("received = %v, want only phase_completed", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe(TypeTaskStatusChanged, func(Event) { calls++ })

	bus.Publish(statusEvent("p1"))
	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe() = false for a live subscription")
	}
	bus.Publish(statusEvent("p1"))

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe() = true for an already removed subscription")
	}
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()

	delivered := false
	bus.Subscribe(TypeTaskStatusChanged, func(Event) { panic("boom") })
	bus.Subscribe(TypeTaskStatusChanged, func(Event) { delivered = true })

	bus.Publish(statusEvent("p1"))

	if !delivered {
		t.Error("handler after the panicking one was not called")
	}
}

func TestClearAndSubscriptionCount(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TypeTaskCompleted, func(Event) {})
	bus.SubscribeAll(func(Event) {})

	if got := bus.SubscriptionCount(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	bus.Clear()
	if got := bus.SubscriptionCount(); got != 0 {
		t.Errorf("count after Clear = %d, want 0", got)
	}
}

func TestSubscriptionIDsAreUnique(t *testing.T) {
	bus := NewBus()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := bus.Subscribe(TypeTaskCompleted, func(Event) {})
		if seen[id] {
			t.Fatalf("duplicate subscription id %s", id)
		}
		seen[id] = true
	}
}

func TestEventAccessors(t *testing.T) {
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		event    Event
		wantType string
	}{
		{NewTaskStatusChanged("p1", "t1", "pending", "in_progress", 10, "", at), TypeTaskStatusChanged},
		{TaskCompleted{PlanID: "p1", TaskID: "t1", Timestamp: at}, TypeTaskCompleted},
		{PhaseCompleted{PlanID: "p1", Phase: 2, Timestamp: at}, TypePhaseCompleted},
		{CheckpointTriggered{PlanID: "p1", CheckpointID: "checkpoint-1", Timestamp: at}, TypeCheckpointTriggered},
		{MilestoneCompleted{PlanID: "p1", Milestone: "M1", Timestamp: at}, TypeMilestoneCompleted},
	}
	for _, tt := range tests {
		if got := tt.event.EventType(); got != tt.wantType {
			t.Errorf("EventType() = %s, want %s", got, tt.wantType)
		}
		if got := tt.event.Plan(); got != "p1" {
			t.Errorf("%s Plan() = %s, want p1", tt.wantType, got)
		}
		if !tt.event.When().Equal(at) {
			t.Errorf("%s When() = %v, want %v", tt.wantType, tt.event.When(), at)
		}
	}
}
