package timeutil

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	if d := clock.Since(past); d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	ticker := RealClock{}.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("ticker did not fire")
	}
}

func TestMockClock_AdvanceMovesNow(t *testing.T) {
	clock := NewMockClock(epoch)
	clock.Advance(20 * time.Millisecond)

	if got := clock.Since(epoch); got != 20*time.Millisecond {
		t.Errorf("Since() = %v, want 20ms", got)
	}
	clock.Set(epoch)
	if !clock.Now().Equal(epoch) {
		t.Errorf("Now() = %v after Set, want %v", clock.Now(), epoch)
	}
}

func TestMockTicker_FiresWhenDue(t *testing.T) {
	clock := NewMockClock(epoch)
	ticker := clock.NewTicker(10 * time.Millisecond)

	clock.Advance(5 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired early")
	default:
	}

	clock.Advance(5 * time.Millisecond)
	select {
	case got := <-ticker.C():
		if want := epoch.Add(10 * time.Millisecond); !got.Equal(want) {
			t.Errorf("tick at %v, want %v", got, want)
		}
	default:
		t.Fatal("ticker did not fire when due")
	}
}

func TestMockTicker_DropsMissedTicks(t *testing.T) {
	clock := NewMockClock(epoch)
	ticker := clock.NewTicker(10 * time.Millisecond)

	clock.Advance(35 * time.Millisecond)
	<-ticker.C()
	select {
	case <-ticker.C():
		t.Fatal("missed ticks should be dropped")
	default:
	}

	// Next due time is 40ms.
	clock.Advance(5 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not resume its schedule")
	}
}

func TestMockTicker_Stop(t *testing.T) {
	clock := NewMockClock(epoch)
	ticker := clock.NewTicker(time.Millisecond)
	ticker.Stop()
	clock.Advance(time.Second)

	select {
	case <-ticker.C():
		t.Error("stopped ticker fired")
	default:
	}
	if clock.Tickers() != 1 {
		t.Errorf("Tickers() = %d, want 1", clock.Tickers())
	}
}
