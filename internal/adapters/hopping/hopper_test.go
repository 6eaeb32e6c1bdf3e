package hopping

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/K13094/tap/internal/telemetry"
)

// MockSwitcher captures channel set calls.
type MockSwitcher struct {
	mu         sync.Mutex
	calls      []int
	shouldFail bool
}

func (m *MockSwitcher) SetChannel(iface string, channel int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, channel)
	if m.shouldFail {
		return fmt.Errorf("mock failure")
	}
	return nil
}

func (m *MockSwitcher) snapshot() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.calls...)
}

func runFor(h *ChannelHopper, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	h.Run(ctx)
}

func TestHopper_RoundRobin(t *testing.T) {
	mock := &MockSwitcher{}
	counters := &telemetry.Counters{}
	h := NewHopper(zerolog.Nop(), "wlan0", []int{1, 6, 11}, 10*time.Millisecond, mock, counters)

	runFor(h, 55*time.Millisecond)

	calls := mock.snapshot()
	if len(calls) < 3 {
		t.Fatalf("expected at least 3 hops, got %d", len(calls))
	}
	wantSeq := []int{1, 6, 11}
	for i, ch := range calls {
		if want := wantSeq[i%len(wantSeq)]; ch != want {
			t.Errorf("hop %d: got channel %d, want %d", i, ch, want)
		}
	}
}

func TestHopper_PublishesCurrentChannel(t *testing.T) {
	mock := &MockSwitcher{}
	counters := &telemetry.Counters{}
	h := NewHopper(zerolog.Nop(), "wlan0", []int{36}, 5*time.Millisecond, mock, counters)

	runFor(h, 25*time.Millisecond)

	if got := counters.CurrentChannel.Load(); got != 36 {
		t.Errorf("current channel = %d, want 36", got)
	}
}

func TestHopper_Pause(t *testing.T) {
	mock := &MockSwitcher{}
	h := NewHopper(zerolog.Nop(), "wlan0", []int{1}, 10*time.Millisecond, mock, &telemetry.Counters{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(25 * time.Millisecond) // let it hop a couple of times
	h.Pause(100 * time.Millisecond)
	time.Sleep(15 * time.Millisecond) // pause is consumed at the next select

	prePauseCount := len(mock.snapshot())
	time.Sleep(40 * time.Millisecond) // well inside the pause window
	duringPauseCount := len(mock.snapshot())

	if duringPauseCount > prePauseCount {
		t.Errorf("hopper kept hopping during pause: %d -> %d", prePauseCount, duringPauseCount)
	}

	cancel()
	<-done
}

func TestHopper_PauseNeverBlocks(t *testing.T) {
	// No Run loop consuming: the second call lands on a full reset channel
	// and must return anyway.
	h := NewHopper(zerolog.Nop(), "wlan0", []int{1}, 10*time.Millisecond, &MockSwitcher{}, &telemetry.Counters{})

	finished := make(chan struct{})
	go func() {
		h.Pause(time.Second)
		h.Pause(time.Second)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Pause blocked on a full reset channel")
	}
}

func TestHopper_EmptyChannelsIdle(t *testing.T) {
	mock := &MockSwitcher{}
	h := NewHopper(zerolog.Nop(), "wlan0", nil, 5*time.Millisecond, mock, &telemetry.Counters{})

	done := make(chan struct{})
	go func() {
		h.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hopper did not return with empty channel plan")
	}
	if len(mock.snapshot()) != 0 {
		t.Errorf("expected 0 hops with empty plan")
	}
}

func TestHopper_KeepsTryingOnErrors(t *testing.T) {
	mock := &MockSwitcher{shouldFail: true}
	counters := &telemetry.Counters{}
	h := NewHopper(zerolog.Nop(), "wlan0", []int{1}, 5*time.Millisecond, mock, counters)

	runFor(h, 30*time.Millisecond)

	if len(mock.snapshot()) == 0 {
		t.Error("hopper stopped hopping on switcher errors")
	}
	if counters.CurrentChannel.Load() != 0 {
		t.Error("failed hops must not advance the current channel cell")
	}
}
