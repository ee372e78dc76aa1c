package clinical

import (
	"errors"
	"testing"

	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/tooth"
)

func TestExpandTreatments_SplitsCommaSeparatedNames(t *testing.T) {
	got, err := ExpandTreatments(tooth.Adult, []TreatmentInput{
		{ToothName: "Upper Right Canine, Upper Left Canine", DentalCondition: "Cavity"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []ConditionEntry{
		{ToothNumber: 6, DentalCondition: "Cavity"},
		{ToothNumber: 11, DentalCondition: "Cavity"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExpandTreatments_KeepsInputOrderAcrossRows(t *testing.T) {
	got, err := ExpandTreatments(tooth.Adult, []TreatmentInput{
		{ToothName: "Lower Right Third Molar", DentalCondition: "Tooth Decay"},
		{ToothName: "Upper Right Third Molar,Upper Left Third Molar", DentalCondition: "Impacted"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	numbers := []int{32, 1, 16}
	if len(got) != len(numbers) {
		t.Fatalf("got %d entries, want %d", len(got), len(numbers))
	}
	for i, n := range numbers {
		if got[i].ToothNumber != n {
			t.Errorf("entry %d tooth = %d, want %d", i, got[i].ToothNumber, n)
		}
	}
	if got[0].DentalCondition != "Tooth Decay" || got[2].DentalCondition != "Impacted" {
		t.Errorf("conditions not carried per row: %+v", got)
	}
}

func TestExpandTreatments_SkipsEmptyTokens(t *testing.T) {
	got, err := ExpandTreatments(tooth.Adult, []TreatmentInput{
		{ToothName: " Upper Right Canine , ,", DentalCondition: "Cavity"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ToothNumber != 6 {
		t.Errorf("got %+v, want a single entry for tooth 6", got)
	}
}

func TestExpandTreatments_RejectsUnknownTooth(t *testing.T) {
	_, err := ExpandTreatments(tooth.Adult, []TreatmentInput{
		{ToothName: "Upper Right Canine", DentalCondition: "Cavity"},
		{ToothName: "Not A Real Tooth", DentalCondition: "Cavity"},
	})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Field != "treatments[1].toothName" {
		t.Errorf("field = %q, want treatments[1].toothName", ve.Field)
	}
}

func TestExpandTreatments_UsesChart(t *testing.T) {
	got, err := ExpandTreatments(tooth.Pediatric, []TreatmentInput{
		{ToothName: "Upper Right Canine", DentalCondition: "Cavity"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].ToothNumber != 3 {
		t.Errorf("pediatric canine = %d, want 3", got[0].ToothNumber)
	}

	if _, err := ExpandTreatments(tooth.Pediatric, []TreatmentInput{
		{ToothName: "Upper Right Third Molar", DentalCondition: "Cavity"},
	}); !apperr.IsValidation(err) {
		t.Errorf("expected adult-only tooth to be rejected on the pediatric chart, got %v", err)
	}
}

func TestExpandTreatments_RequiresConditionAndTooth(t *testing.T) {
	if _, err := ExpandTreatments(tooth.Adult, []TreatmentInput{{ToothName: "Upper Right Canine"}}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for missing condition, got %v", err)
	}
	if _, err := ExpandTreatments(tooth.Adult, []TreatmentInput{{ToothName: " , ", DentalCondition: "Cavity"}}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for a row naming no tooth, got %v", err)
	}
}

func TestExpandTreatments_EmptyInput(t *testing.T) {
	got, err := ExpandTreatments(tooth.Adult, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestDescribeConditions(t *testing.T) {
	in := []ConditionEntry{
		{ToothNumber: 32, DentalCondition: "Tooth Decay"},
		{ToothNumber: 40, DentalCondition: "Unknown"},
	}
	got := DescribeConditions(tooth.Adult, in)
	if got[0].ToothName != "Lower Right Third Molar" {
		t.Errorf("tooth 32 name = %q", got[0].ToothName)
	}
	if got[1].ToothName != "" {
		t.Errorf("off-chart tooth should have no name, got %q", got[1].ToothName)
	}
	if in[0].ToothName != "" {
		t.Error("DescribeConditions must not modify its input")
	}
}
