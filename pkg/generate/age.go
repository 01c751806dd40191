package generate

import "fmt"

// VisualAge maps a real age to the deliberately younger age used in image
// prompts. Deductions step up with age and the result never goes below 25.
func VisualAge(age int) int {
	var deduction int
	switch {
	case age >= 60:
		deduction = 20
	case age >= 50:
		deduction = 15
	case age >= 40:
		deduction = 10
	case age >= 30:
		deduction = 7
	}
	visual := age - deduction
	if visual < 25 {
		return 25
	}
	return visual
}

// AgePhrase renders the visual/real age pair the way every image prompt
// template expects it, e.g. "42-year-old (62-year-old)".
func AgePhrase(age int) string {
	return fmt.Sprintf("%d-year-old (%d-year-old)", VisualAge(age), age)
}
