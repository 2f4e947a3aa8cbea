package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIntersect(t *testing.T) {
	t.Parallel()

	a := NewChartSet(10643, 20356, 30123)
	b := NewChartSet(20356, 30123, 40567)

	got := Intersect(a, b)

	want := NewChartSet(20356, 30123)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("intersection mismatch (-want +got):\n%s", diff)
	}

	if got.Len() > a.Len() || got.Len() > b.Len() {
		t.Error("intersection larger than an operand")
	}
}

func TestIntersectDisjoint(t *testing.T) {
	t.Parallel()

	got := Intersect(NewChartSet(1, 2), NewChartSet(3, 4))
	if got.Len() != 0 {
		t.Errorf("expected empty intersection, got %v", got.Sorted())
	}
}

func TestIntersectThreeWay(t *testing.T) {
	t.Parallel()

	got := Intersect(NewChartSet(1, 2, 3), NewChartSet(2, 3, 4), NewChartSet(3, 4, 5))
	if diff := cmp.Diff(NewChartSet(3), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnion(t *testing.T) {
	t.Parallel()

	fundus := NewChartSet(148022, 204775)
	secondary := NewChartSet(148022, 109891)

	got := Union(fundus, secondary)

	want := NewChartSet(148022, 204775, 109891)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("union mismatch (-want +got):\n%s", diff)
	}
}

func TestSetAlgebraBounds(t *testing.T) {
	t.Parallel()

	sets := []struct {
		a, b ChartSet
	}{
		{NewChartSet(), NewChartSet()},
		{NewChartSet(1), NewChartSet()},
		{NewChartSet(1, 2, 3), NewChartSet(3, 4)},
		{NewChartSet(5, 6), NewChartSet(5, 6)},
		{NewChartSet(1, 2, 3, 4, 5), NewChartSet(6)},
	}

	for _, tt := range sets {
		inter := Intersect(tt.a, tt.b).Len()
		union := Union(tt.a, tt.b).Len()

		if inter > min(tt.a.Len(), tt.b.Len()) {
			t.Errorf("|A∩B|=%d exceeds min(%d,%d)", inter, tt.a.Len(), tt.b.Len())
		}

		if union < max(tt.a.Len(), tt.b.Len()) || union > tt.a.Len()+tt.b.Len() {
			t.Errorf("|A∪B|=%d outside [max(%d,%d), %d]",
				union, tt.a.Len(), tt.b.Len(), tt.a.Len()+tt.b.Len())
		}
	}
}

func TestChartSetSorted(t *testing.T) {
	t.Parallel()

	got := NewChartSet(300, 100, 200).Sorted()
	if diff := cmp.Diff([]int{100, 200, 300}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
