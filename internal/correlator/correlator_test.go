package correlator

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/journal-chat/internal/wire"
)

func response(id, message string) wire.Envelope {
	return wire.Envelope{
		Kind:    wire.KindChatMessage,
		Payload: wire.Payload{ID: id, Message: message},
	}
}

func wait(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
		return Result{}
	}
}

func assertNoResult(t *testing.T, ch <-chan Result) {
	t.Helper()
	select {
	case res := <-ch:
		t.Fatalf("unexpected second result: %+v", res)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestCorrelator_Deliver(t *testing.T) {
	c := New(nil)

	ch, err := c.Register("a", time.Second)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !c.Deliver(response("a", "hello")) {
		t.Fatal("expected Deliver to route response")
	}

	res := wait(t, ch)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Envelope.Payload.Message != "hello" {
		t.Errorf("Message = %q, want hello", res.Envelope.Payload.Message)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}

	// Late duplicate is a no-op.
	if c.Deliver(response("a", "again")) {
		t.Error("expected duplicate delivery to be dropped")
	}
	assertNoResult(t, ch)
}

func TestCorrelator_UnknownID(t *testing.T) {
	c := New(nil)
	if c.Deliver(response("nobody", "x")) {
		t.Error("expected unknown id to be dropped")
	}
}

func TestCorrelator_RegisterErrors(t *testing.T) {
	c := New(nil)

	if _, err := c.Register("", time.Second); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}

	if _, err := c.Register("a", time.Second); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := c.Register("a", time.Second); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	c.ClearAll(nil)
}

func TestCorrelator_Timeout(t *testing.T) {
	c := New(nil)

	ch, err := c.Register("slow", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	res := wait(t, ch)
	var terr *RequestTimeoutError
	if !errors.As(res.Err, &terr) {
		t.Fatalf("expected *RequestTimeoutError, got %v", res.Err)
	}
	if terr.ID != "slow" {
		t.Errorf("ID = %q, want slow", terr.ID)
	}
	if !errors.Is(res.Err, ErrTimeout) {
		t.Error("expected errors.Is(err, ErrTimeout)")
	}

	// A response after the timeout must not settle a second time.
	if c.Deliver(response("slow", "too late")) {
		t.Error("expected late response to be dropped")
	}
	assertNoResult(t, ch)
}

func TestCorrelator_ClearAll(t *testing.T) {
	c := New(nil)
	reason := errors.New("session cleanup")

	chans := make([]<-chan Result, 0, 5)
	for i := 0; i < 5; i++ {
		ch, err := c.Register(fmt.Sprintf("req-%d", i), 50*time.Millisecond)
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		chans = append(chans, ch)
	}

	if n := c.ClearAll(reason); n != 5 {
		t.Errorf("ClearAll = %d, want 5", n)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}

	for _, ch := range chans {
		res := wait(t, ch)
		if !errors.Is(res.Err, ErrCancelled) {
			t.Errorf("expected ErrCancelled, got %v", res.Err)
		}
		if !errors.Is(res.Err, reason) {
			t.Errorf("expected cancellation to wrap reason, got %v", res.Err)
		}
	}

	// Timers were stopped: nothing fires after the original deadline.
	time.Sleep(80 * time.Millisecond)
	for _, ch := range chans {
		assertNoResult(t, ch)
	}

	if n := c.ClearAll(reason); n != 0 {
		t.Errorf("second ClearAll = %d, want 0", n)
	}
}

func TestCorrelator_Remove(t *testing.T) {
	c := New(nil)

	ch, err := c.Register("a", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !c.Remove("a") {
		t.Error("expected Remove to find request")
	}
	if c.Remove("a") {
		t.Error("expected second Remove to be a no-op")
	}

	// The timer was stopped with the removal.
	time.Sleep(50 * time.Millisecond)
	assertNoResult(t, ch)

	// The id can be reused once removed.
	if _, err := c.Register("a", time.Second); err != nil {
		t.Errorf("re-Register failed: %v", err)
	}
	c.ClearAll(nil)
}

func TestCorrelator_OutOfOrder(t *testing.T) {
	c := New(nil)

	ids := []string{"A", "B", "C"}
	chans := make(map[string]<-chan Result)
	for _, id := range ids {
		ch, err := c.Register(id, time.Second)
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		chans[id] = ch
	}

	for _, id := range []string{"C", "A", "B"} {
		if !c.Deliver(response(id, "reply to "+id)) {
			t.Fatalf("Deliver(%s) not routed", id)
		}
	}

	for _, id := range ids {
		res := wait(t, chans[id])
		if want := "reply to " + id; res.Envelope.Payload.Message != want {
			t.Errorf("%s got %q, want %q", id, res.Envelope.Payload.Message, want)
		}
	}
}

func TestCorrelator_RacingSettlePaths(t *testing.T) {
	// Response, timeout and ClearAll race; each request settles exactly once.
	for i := 0; i < 50; i++ {
		c := New(nil)
		id := fmt.Sprintf("r%d", i)
		ch, err := c.Register(id, time.Millisecond)
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Deliver(response(id, "x"))
		}()
		go func() {
			defer wg.Done()
			c.ClearAll(nil)
		}()
		wg.Wait()

		wait(t, ch)
		assertNoResult(t, ch)
	}
}
