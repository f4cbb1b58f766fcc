package lifecycle

import (
	"errors"
	"testing"
)

func TestAllowedTransitions(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusRejected},
		{StatusConfirmed, StatusCanceling},
		{StatusConfirmed, StatusCompleted},
		{StatusCanceling, StatusCanceled},
	}
	for _, edge := range allowed {
		if err := Transition(edge[0], edge[1]); err != nil {
			t.Fatalf("expected %s -> %s to be allowed: %v", edge[0], edge[1], err)
		}
	}
}

func TestRejectedTransitions(t *testing.T) {
	denied := [][2]Status{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusCanceling},
		{StatusConfirmed, StatusPending},
		{StatusConfirmed, StatusRejected},
		{StatusCanceling, StatusConfirmed},
		{StatusRejected, StatusPending},
		{StatusCanceled, StatusConfirmed},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusCanceling},
	}
	for _, edge := range denied {
		if err := Transition(edge[0], edge[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected %s -> %s to be rejected", edge[0], edge[1])
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusCanceled, StatusCompleted} {
		if !Terminal(s) {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusCanceling} {
		if Terminal(s) {
			t.Fatalf("expected %s not to be terminal", s)
		}
	}
}

func TestBlocksSlot(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusCanceling, StatusCompleted} {
		if !BlocksSlot(s) {
			t.Fatalf("expected %s to hold its slots", s)
		}
	}
	for _, s := range []Status{StatusRejected, StatusCanceled} {
		if BlocksSlot(s) {
			t.Fatalf("expected %s to release its slots", s)
		}
	}
}
