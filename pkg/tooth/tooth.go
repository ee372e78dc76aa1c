// Package tooth maps anatomical tooth names to their position in the
// Universal numbering order and back.
//
// Adult teeth are numbered 1 (upper right third molar) through 32 (lower
// right third molar), running around the upper arch from right to left and
// back along the lower arch from left to right. Primary (pediatric) teeth use
// the same walk over 20 positions. A number of 0 never names a tooth.
package tooth

import "strings"

// NotFound is returned by Number when a name is not on the chart.
const NotFound = 0

// Chart selects the adult or the pediatric name table.
type Chart int

const (
	Adult Chart = iota
	Pediatric
)

func (c Chart) String() string {
	if c == Pediatric {
		return "pediatric"
	}
	return "adult"
}

// ChartFor parses a chart name. The empty string means Adult.
func ChartFor(s string) (Chart, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "adult", "permanent":
		return Adult, true
	case "pediatric", "paediatric", "primary", "child":
		return Pediatric, true
	}
	return Adult, false
}

var adultTeeth = [32]string{
	"Upper Right Third Molar",
	"Upper Right Second Molar",
	"Upper Right First Molar",
	"Upper Right Second Premolar",
	"Upper Right First Premolar",
	"Upper Right Canine",
	"Upper Right Lateral Incisor",
	"Upper Right Central Incisor",
	"Upper Left Central Incisor",
	"Upper Left Lateral Incisor",
	"Upper Left Canine",
	"Upper Left First Premolar",
	"Upper Left Second Premolar",
	"Upper Left First Molar",
	"Upper Left Second Molar",
	"Upper Left Third Molar",
	"Lower Left Third Molar",
	"Lower Left Second Molar",
	"Lower Left First Molar",
	"Lower Left Second Premolar",
	"Lower Left First Premolar",
	"Lower Left Canine",
	"Lower Left Lateral Incisor",
	"Lower Left Central Incisor",
	"Lower Right Central Incisor",
	"Lower Right Lateral Incisor",
	"Lower Right Canine",
	"Lower Right First Premolar",
	"Lower Right Second Premolar",
	"Lower Right First Molar",
	"Lower Right Second Molar",
	"Lower Right Third Molar",
}

var pediatricTeeth = [20]string{
	"Upper Right Second Molar",
	"Upper Right First Molar",
	"Upper Right Canine",
	"Upper Right Lateral Incisor",
	"Upper Right Central Incisor",
	"Upper Left Central Incisor",
	"Upper Left Lateral Incisor",
	"Upper Left Canine",
	"Upper Left First Molar",
	"Upper Left Second Molar",
	"Lower Left Second Molar",
	"Lower Left First Molar",
	"Lower Left Canine",
	"Lower Left Lateral Incisor",
	"Lower Left Central Incisor",
	"Lower Right Central Incisor",
	"Lower Right Lateral Incisor",
	"Lower Right Canine",
	"Lower Right First Molar",
	"Lower Right Second Molar",
}

func table(c Chart) []string {
	if c == Pediatric {
		return pediatricTeeth[:]
	}
	return adultTeeth[:]
}

// Size returns the number of teeth on the chart.
func Size(c Chart) int {
	return len(table(c))
}

// Number returns the 1-based position of name on the chart, or NotFound.
// Matching is exact.
func Number(c Chart, name string) int {
	for i, n := range table(c) {
		if n == name {
			return i + 1
		}
	}
	return NotFound
}

// Name returns the tooth at position n. ok is false when n is off the chart.
func Name(c Chart, n int) (name string, ok bool) {
	t := table(c)
	if n < 1 || n > len(t) {
		return "", false
	}
	return t[n-1], true
}

// Names returns a copy of the chart's names in numbering order.
func Names(c Chart) []string {
	t := table(c)
	out := make([]string, len(t))
	copy(out, t)
	return out
}
