package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsGeneratedColumnError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New(`ERROR: cannot insert a non-DEFAULT value into column "line_total" (SQLSTATE 428C9)`), true},
		{errors.New(`ERROR: cannot insert into column "line_cost_total"`), true},
		{errors.New(`cannot INSERT into generated column "line_total"`), true},
		{fmt.Errorf("insert lines: %w", ErrGeneratedColumn), true},
		{errors.New(`ERROR: duplicate key value violates unique constraint`), false},
		{errors.New("connection refused"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsGeneratedColumnError(tc.err); got != tc.want {
			t.Fatalf("IsGeneratedColumnError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestColumnSetLadder(t *testing.T) {
	set := ColumnsFull
	visited := []string{set.String()}
	for {
		next, ok := set.Next()
		if !ok {
			break
		}
		set = next
		visited = append(visited, set.String())
	}
	want := []string{"full", "without_line_total", "without_totals"}
	if fmt.Sprint(visited) != fmt.Sprint(want) {
		t.Fatalf("ladder = %v, want %v", visited, want)
	}
	if ColumnsWithoutLineTotal.WritesLineTotal() || !ColumnsWithoutLineTotal.WritesLineCostTotal() {
		t.Fatalf("without_line_total must keep line_cost_total only")
	}
	if ColumnsWithoutTotals.WritesLineCostTotal() {
		t.Fatalf("without_totals writes neither total")
	}
}

func TestParseColumnSetAndColumnsFor(t *testing.T) {
	got, err := ParseColumnSet(" Without_Totals ")
	if err != nil || got != ColumnsWithoutTotals {
		t.Fatalf("unexpected parse result %v %v", got, err)
	}
	if _, err := ParseColumnSet("auto"); err == nil {
		t.Fatalf("expected error for auto")
	}
	if ColumnsFor(true, false) != ColumnsWithoutLineTotal {
		t.Fatalf("generated line_total drops only line_total")
	}
	if ColumnsFor(false, true) != ColumnsWithoutTotals {
		t.Fatalf("generated line_cost_total drops both")
	}
	if ColumnsFor(false, false) != ColumnsFull {
		t.Fatalf("no generated columns keeps full set")
	}
}
