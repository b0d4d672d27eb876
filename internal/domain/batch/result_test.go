package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK("octocat")
	if r.Username() != "octocat" {
		t.Errorf("Username() = %q", r.Username())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewFailed(t *testing.T) {
	err := errors.New("embedding failed")
	r := NewFailed("octocat", err)
	if r.Status() != StatusFailed {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusFailed)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		NewOK("a"),
		NewOK("b"),
		NewSkipped("c"),
		NewFailed("d", errors.New("x")),
		NewFailed("", errors.New("bad record")),
	})
	if s.Success != 2 || s.Skipped != 1 || s.Failed != 2 {
		t.Errorf("Summarize = %+v", s)
	}
	if s.Total() != 5 {
		t.Errorf("Total() = %d, want 5", s.Total())
	}
}

func TestSummary_Message(t *testing.T) {
	s := Summary{Success: 3, Failed: 1, Skipped: 2}
	want := "Processed 6 users: 3 added, 1 failed, 2 skipped."
	if got := s.Message(); got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestSummary_Empty(t *testing.T) {
	var s Summary
	if s.Total() != 0 {
		t.Errorf("Total() = %d", s.Total())
	}
}
