// Package grade maps numeric averages to letter grades.
package grade

import "math"

type Grade string

const (
	A Grade = "A"
	B Grade = "B"
	C Grade = "C"
	D Grade = "D"
	F Grade = "F"
)

// Components is the number of graded assessments that make up a total:
// hw1, participation, q1, final_khmer and final_english.
const Components = 5

var bands = []struct {
	min   float64
	grade Grade
}{
	{90, A},
	{80, B},
	{70, C},
	{60, D},
}

// Classify returns the letter grade for avg. Lower bounds are inclusive.
func Classify(avg float64) Grade {
	if math.IsNaN(avg) {
		return F
	}
	for _, b := range bands {
		if avg >= b.min {
			return b.grade
		}
	}
	return F
}

// Average divides total by the number of graded components.
func Average(total float64, components int) float64 {
	if components <= 0 {
		return 0
	}
	return total / float64(components)
}

// FromTotal classifies total over the standard component count.
func FromTotal(total float64) Grade {
	return Classify(Average(total, Components))
}

func (g Grade) String() string { return string(g) }
