package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not reach the previous logger")
	}
}

func TestComponent(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	logf := Component("sim")

	var got string
	SetLogger(func(format string, v ...interface{}) { got = fmt.Sprintf(format, v...) })
	logf("tick %d", 3)
	if got != "[sim] tick 3" {
		t.Errorf("got %q, want %q", got, "[sim] tick 3")
	}
}
