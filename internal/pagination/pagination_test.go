package pagination

import "testing"

type fakePager struct {
	page int
	sets []int
}

func (f *fakePager) Page() int { return f.page }
func (f *fakePager) SetPage(p int) bool {
	f.sets = append(f.sets, p)
	f.page = p
	return true
}

func TestGoToRejectsBelowOne(t *testing.T) {
	p := &fakePager{page: 4}
	c := NewController(p)
	for _, n := range []int{0, -5} {
		if c.GoTo(n) {
			t.Fatalf("GoTo(%d) accepted", n)
		}
	}
	if p.page != 4 || len(p.sets) != 0 {
		t.Fatalf("pager touched: page=%d sets=%v", p.page, p.sets)
	}
}

func TestNextPrevious(t *testing.T) {
	p := &fakePager{page: 1}
	c := NewController(p)

	if c.Previous() {
		t.Fatal("previous from page 1 must be a no-op")
	}
	if !c.Next() || c.Current() != 2 {
		t.Fatalf("next: page=%d", c.Current())
	}
	if !c.Next() || c.Current() != 3 {
		t.Fatalf("next: page=%d", c.Current())
	}
	if !c.Previous() || c.Current() != 2 {
		t.Fatalf("previous: page=%d", c.Current())
	}
	if !c.GoTo(250) || c.Current() != 250 {
		t.Fatalf("goto without upper bound: page=%d", c.Current())
	}
	if len(p.sets) != 4 {
		t.Fatalf("sets got %v", p.sets)
	}
}
