package signal

import (
	"encoding/json"
	"testing"

	"github.com/socialitehq/socialite/models"
	"github.com/socialitehq/socialite/push"
)

// fakeChannel records emitted events and lets tests feed events back in as if
// they came off the wire.
type fakeChannel struct {
	emitted  []models.Event
	handlers map[string][]push.Handler
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string][]push.Handler)}
}

func (f *fakeChannel) Emit(event models.Event) error {
	f.emitted = append(f.emitted, event)
	return nil
}

func (f *fakeChannel) Handle(eventType string, h push.Handler) {
	f.handlers[eventType] = append(f.handlers[eventType], h)
}

func (f *fakeChannel) deliver(t *testing.T, eventType string, p models.SignalPayload) {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range f.handlers[eventType] {
		h(raw)
	}
}

func (f *fakeChannel) lastEmitted(t *testing.T) (string, models.SignalPayload) {
	t.Helper()
	if len(f.emitted) == 0 {
		t.Fatal("nothing was emitted")
	}
	event := f.emitted[len(f.emitted)-1]
	var p models.SignalPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		t.Fatal(err)
	}
	return event.Type, p
}

func TestCallEmitsCallUser(t *testing.T) {
	ch := newFakeChannel()
	c := NewClient(ch, "u1")

	offer := json.RawMessage(`{"sdp":"offer"}`)
	if err := c.Call("u2", offer); err != nil {
		t.Fatal(err)
	}

	eventType, p := ch.lastEmitted(t)
	if eventType != models.EventCallUser {
		t.Errorf("got event %q", eventType)
	}
	if p.From != "u1" || p.To != "u2" || string(p.SignalData) != `{"sdp":"offer"}` {
		t.Errorf("bad payload: %+v", p)
	}
	if call, ok := c.Current(); !ok || !call.Outgoing || call.PeerID != "u2" {
		t.Errorf("outgoing call not staged: %+v", call)
	}
}

func TestSecondCallWhileStagedFails(t *testing.T) {
	ch := newFakeChannel()
	c := NewClient(ch, "u1")
	if err := c.Call("u2", nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Call("u3", nil); err == nil {
		t.Fatal("second concurrent call must fail")
	}
}

func TestIncomingCallIsStagedAndAnswered(t *testing.T) {
	ch := newFakeChannel()
	c := NewClient(ch, "u1")

	var incoming []Call
	c.OnIncoming = func(call Call) { incoming = append(incoming, call) }

	ch.deliver(t, models.EventCallIncoming, models.SignalPayload{
		From: "u2", To: "u1", SignalData: json.RawMessage(`{"sdp":"offer"}`),
	})
	if len(incoming) != 1 || incoming[0].PeerID != "u2" {
		t.Fatalf("incoming call not surfaced: %+v", incoming)
	}

	if err := c.Answer(json.RawMessage(`{"sdp":"answer"}`)); err != nil {
		t.Fatal(err)
	}
	eventType, p := ch.lastEmitted(t)
	if eventType != models.EventCallAccepted || p.To != "u2" {
		t.Errorf("answer should emit call-accepted to the caller, got %q to %q", eventType, p.To)
	}
}

func TestIncomingWhileBusyAutoDeclines(t *testing.T) {
	ch := newFakeChannel()
	c := NewClient(ch, "u1")
	if err := c.Call("u2", nil); err != nil {
		t.Fatal(err)
	}

	var incoming []Call
	c.OnIncoming = func(call Call) { incoming = append(incoming, call) }
	ch.deliver(t, models.EventCallIncoming, models.SignalPayload{From: "u3", To: "u1"})

	if len(incoming) != 0 {
		t.Error("a busy client must not surface the second call")
	}
	eventType, p := ch.lastEmitted(t)
	if eventType != models.EventCallDeclined || p.To != "u3" {
		t.Errorf("busy client should auto-decline, got %q to %q", eventType, p.To)
	}
	if call, ok := c.Current(); !ok || call.PeerID != "u2" {
		t.Errorf("staged call was disturbed: %+v", call)
	}
}

func TestAcceptedCompletesOutgoingCall(t *testing.T) {
	ch := newFakeChannel()
	c := NewClient(ch, "u1")
	c.Call("u2", json.RawMessage(`{"sdp":"offer"}`))

	var accepted []Call
	c.OnAccepted = func(call Call) { accepted = append(accepted, call) }

	// an accept from the wrong peer is ignored
	ch.deliver(t, models.EventCallAccepted, models.SignalPayload{From: "u9", To: "u1"})
	if len(accepted) != 0 {
		t.Fatal("accept from an unrelated peer must be ignored")
	}

	ch.deliver(t, models.EventCallAccepted, models.SignalPayload{
		From: "u2", To: "u1", SignalData: json.RawMessage(`{"sdp":"answer"}`),
	})
	if len(accepted) != 1 || string(accepted[0].SignalData) != `{"sdp":"answer"}` {
		t.Fatalf("accepted callback missing the answer data: %+v", accepted)
	}
}

func TestDeclineClearsOutgoingCall(t *testing.T) {
	ch := newFakeChannel()
	c := NewClient(ch, "u1")
	c.Call("u2", nil)

	declined := false
	c.OnDeclined = func(Call) { declined = true }
	ch.deliver(t, models.EventCallDeclined, models.SignalPayload{From: "u2", To: "u1"})

	if !declined {
		t.Error("declined callback did not fire")
	}
	if _, ok := c.Current(); ok {
		t.Error("declined call should be cleared")
	}
	// the line is free again
	if err := c.Call("u3", nil); err != nil {
		t.Errorf("new call after decline should work: %v", err)
	}
}

func TestHangupEndsEitherSide(t *testing.T) {
	ch := newFakeChannel()
	c := NewClient(ch, "u1")

	if err := c.Hangup(); err == nil {
		t.Fatal("hangup without a call must fail")
	}

	c.Call("u2", nil)
	if err := c.Hangup(); err != nil {
		t.Fatal(err)
	}
	eventType, p := ch.lastEmitted(t)
	if eventType != models.EventEndCall || p.To != "u2" {
		t.Errorf("hangup should emit end-call, got %q to %q", eventType, p.To)
	}
	if _, ok := c.Current(); ok {
		t.Error("hangup should clear the staged call")
	}
}

func TestRemoteEndClearsCall(t *testing.T) {
	ch := newFakeChannel()
	c := NewClient(ch, "u1")
	c.Call("u2", nil)

	ended := false
	c.OnEnded = func(Call) { ended = true }
	ch.deliver(t, models.EventEndCall, models.SignalPayload{From: "u2", To: "u1"})

	if !ended {
		t.Error("ended callback did not fire")
	}
	if _, ok := c.Current(); ok {
		t.Error("remote end-call should clear the staged call")
	}
}
