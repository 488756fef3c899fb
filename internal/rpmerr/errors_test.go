package rpmerr

import (
	"errors"
	"testing"
)

func TestErrorAndDescribe(t *testing.T) {
	e := New(BadQuery, "bad filter %q", "NAME")
	if e.Error() != `BadQuery: bad filter "NAME"` {
		t.Errorf("Error() = %q", e.Error())
	}
	if e.Describe() != e.Error() {
		t.Errorf("Describe() without detail should equal Error()")
	}

	withDetail := e.WithDetail("try a different keyname")
	if withDetail.Describe() != e.Error()+": try a different keyname" {
		t.Errorf("Describe() with detail = %q", withDetail.Describe())
	}
}

func TestIsMatchesByKind(t *testing.T) {
	e1 := New(NoSolution, "no solution for x")
	e2 := New(NoSolution, "no solution for y")
	if !errors.Is(e1, e2) {
		t.Error("expected errors of the same Kind to match via errors.Is")
	}
	if errors.Is(e1, ErrBadQuery) {
		t.Error("expected errors of different Kinds not to match")
	}
	if !errors.Is(e1, ErrNoSolution) {
		t.Error("expected e1 to match its sentinel")
	}
}
