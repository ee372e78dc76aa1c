package clinical

import (
	"fmt"
	"strings"

	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/tooth"
)

// TreatmentInput is a form row: one condition applied to one or more teeth,
// e.g. {"toothName": "Upper Right Canine, Upper Left Canine", "dentalCondition": "Cavity"}.
type TreatmentInput struct {
	ToothName       string `json:"toothName"`
	DentalCondition string `json:"dentalCondition"`
}

// ConditionEntry is the stored per-tooth condition. ToothName is filled in
// for responses only.
type ConditionEntry struct {
	ToothNumber     int    `json:"toothNumber"`
	ToothName       string `json:"toothName,omitempty"`
	DentalCondition string `json:"dentalCondition"`
}

// ExpandTreatments turns form rows into one ConditionEntry per named tooth,
// in input order. Every name must be on the chart.
func ExpandTreatments(chart tooth.Chart, treatments []TreatmentInput) ([]ConditionEntry, error) {
	entries := []ConditionEntry{}
	for i, t := range treatments {
		condition := strings.TrimSpace(t.DentalCondition)
		if condition == "" {
			return nil, apperr.Required(fmt.Sprintf("treatments[%d].dentalCondition", i))
		}
		named := 0
		for _, token := range strings.Split(t.ToothName, ",") {
			name := strings.TrimSpace(token)
			if name == "" {
				continue
			}
			n := tooth.Number(chart, name)
			if n == tooth.NotFound {
				return nil, apperr.Invalid(fmt.Sprintf("treatments[%d].toothName", i),
					"%q is not a tooth on the %s chart", name, chart)
			}
			entries = append(entries, ConditionEntry{ToothNumber: n, DentalCondition: condition})
			named++
		}
		if named == 0 {
			return nil, apperr.Required(fmt.Sprintf("treatments[%d].toothName", i))
		}
	}
	return entries, nil
}

// DescribeConditions returns a copy of entries with ToothName resolved where
// the number is on the chart.
func DescribeConditions(chart tooth.Chart, entries []ConditionEntry) []ConditionEntry {
	out := make([]ConditionEntry, len(entries))
	for i, e := range entries {
		out[i] = e
		out[i].ToothName = ""
		if name, ok := tooth.Name(chart, e.ToothNumber); ok {
			out[i].ToothName = name
		}
	}
	return out
}

// bare strips response-only names before entries are stored.
func bare(entries []ConditionEntry) []ConditionEntry {
	out := make([]ConditionEntry, len(entries))
	for i, e := range entries {
		out[i] = ConditionEntry{ToothNumber: e.ToothNumber, DentalCondition: e.DentalCondition}
	}
	return out
}

// parseChart validates a record's chart field, defaulting to adult.
func parseChart(s string) (tooth.Chart, string, error) {
	c, ok := tooth.ChartFor(s)
	if !ok {
		return c, "", apperr.Invalid("chart", "must be adult or pediatric, got %q", s)
	}
	return c, c.String(), nil
}
