package pkgset

import "testing"

func TestSetAlgebra(t *testing.T) {
	a := FromIds(1, 2, 3)
	b := FromIds(2, 3, 4)

	u := a.Union(b)
	if u.Len() != 4 {
		t.Errorf("Union.Len() = %d, want 4", u.Len())
	}

	i := a.Intersection(b)
	if i.Len() != 2 || !i.Contains(2) || !i.Contains(3) {
		t.Errorf("Intersection = %v, want {2,3}", i.Ids())
	}

	d := a.Difference(b)
	if d.Len() != 1 || !d.Contains(1) {
		t.Errorf("Difference = %v, want {1}", d.Ids())
	}
}

func TestSetInPlaceMutators(t *testing.T) {
	a := FromIds(1, 2)
	b := FromIds(2, 3)

	clone := a.Clone()
	clone.UnionInPlace(b)
	if clone.Len() != 3 {
		t.Errorf("after UnionInPlace, Len() = %d, want 3", clone.Len())
	}
	if a.Len() != 2 {
		t.Errorf("original mutated by Clone+UnionInPlace")
	}

	clone2 := a.Clone()
	clone2.IntersectInPlace(b)
	if clone2.Len() != 1 || !clone2.Contains(2) {
		t.Errorf("IntersectInPlace = %v, want {2}", clone2.Ids())
	}

	clone3 := a.Clone()
	clone3.SubtractInPlace(b)
	if clone3.Len() != 1 || !clone3.Contains(1) {
		t.Errorf("SubtractInPlace = %v, want {1}", clone3.Ids())
	}
}

func TestSetEmptyAndEach(t *testing.T) {
	s := New()
	if !s.IsEmpty() {
		t.Error("new set should be empty")
	}
	s.Add(5)
	s.Add(1)
	if s.IsEmpty() {
		t.Error("set with members should not be empty")
	}

	var seen []Id
	s.Each(func(id Id) bool {
		seen = append(seen, id)
		return true
	})
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 5 {
		t.Errorf("Each order = %v, want ascending [1 5]", seen)
	}

	s.Remove(1)
	if s.Contains(1) {
		t.Error("expected 1 removed")
	}
}
