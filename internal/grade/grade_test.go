package grade

import (
	"math"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		avg  float64
		want Grade
	}{
		{100, A},
		{90, A},
		{89.999, B},
		{80, B},
		{79.5, C},
		{70, C},
		{69.99, D},
		{60, D},
		{59.99, F},
		{0, F},
		{-5, F},
		{math.NaN(), F},
	}
	for _, tt := range tests {
		if got := Classify(tt.avg); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.avg, got, tt.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	rank := map[Grade]int{F: 0, D: 1, C: 2, B: 3, A: 4}
	prev := Classify(-10)
	for avg := -10.0; avg <= 110; avg += 0.25 {
		g := Classify(avg)
		if _, ok := rank[g]; !ok {
			t.Fatalf("Classify(%v) = %q, not a known grade", avg, g)
		}
		if rank[g] < rank[prev] {
			t.Fatalf("grade dropped from %s to %s at %v", prev, g, avg)
		}
		prev = g
	}
}

func TestFromTotal(t *testing.T) {
	if got := FromTotal(475); got != A {
		t.Fatalf("FromTotal(475) = %s, want A", got)
	}
	if got := FromTotal(275); got != F {
		t.Fatalf("FromTotal(275) = %s, want F", got)
	}
	if got := Average(100, 0); got != 0 {
		t.Fatalf("Average with zero components = %v", got)
	}
}
