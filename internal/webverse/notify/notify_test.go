package notify

import "testing"

func TestNotifier_FanOut(t *testing.T) {
	n := New()

	var a, b []Event
	n.Subscribe(func(e Event) { a = append(a, e) })
	n.Subscribe(func(e Event) { b = append(b, e) })

	n.Emit(Event{Kind: KindProgress, LabID: "alpha"})

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("Both subscribers should receive the event, got %d/%d", len(a), len(b))
	}
	if a[0].LabID != "alpha" || a[0].Kind != KindProgress {
		t.Errorf("Unexpected event: %+v", a[0])
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := New()

	var got []Event
	id := n.Subscribe(func(e Event) { got = append(got, e) })
	n.Unsubscribe(id)

	n.Emit(Event{Kind: KindAuth})
	if len(got) != 0 {
		t.Errorf("Unsubscribed handler must not fire, got %v", got)
	}
}

func TestNotifier_EmitWithoutSubscribers(t *testing.T) {
	n := New()
	// Must not panic
	n.Emit(Event{Kind: KindActiveLab, LabID: "alpha"})
}
