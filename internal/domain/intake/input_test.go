package intake

import (
	"strconv"
	"testing"
)

func TestAccepts(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		value   string
		wantErr bool
	}{
		{"empty clears", FieldGender, "", false},
		{"free text name", FieldName, "Asha Rao", false},
		{"whitespace name", FieldName, "  ", false},
		{"free text notes", FieldSymptomsText, "anything at all", false},
		{"age lower bound", FieldAge, "0", false},
		{"age upper bound", FieldAge, "150", false},
		{"age too high", FieldAge, "151", true},
		{"age negative", FieldAge, "-1", true},
		{"age not a number", FieldAge, "thirty", true},
		{"age decimal", FieldAge, "30.5", true},
		{"gender option", FieldGender, "female", false},
		{"gender label is not a value", FieldGender, "Female", true},
		{"pulse option", FieldPulse, "kapha-pulse", false},
		{"tongue unknown", FieldTongue, "purple", true},
		{"constitution option", FieldConstitution, "tridosha", false},
		{"reserved field takes text", FieldUrination, "normal", false},
		{"unknown field", Field("bloodType"), "O+", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Accepts(tt.field, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Accepts(%s, %q) error = %v, wantErr %v", tt.field, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestAccepts_EveryOption(t *testing.T) {
	for f, opts := range Options {
		for _, o := range opts {
			if err := Accepts(f, o.Value); err != nil {
				t.Errorf("Accepts(%s, %q) unexpected error: %v", f, o.Value, err)
			}
		}
	}
}

func TestAccepts_FullAgeRange(t *testing.T) {
	for age := MinAge; age <= MaxAge; age++ {
		if err := Accepts(FieldAge, strconv.Itoa(age)); err != nil {
			t.Fatalf("Accepts(age, %d) unexpected error: %v", age, err)
		}
	}
}

func TestAcceptsRecord(t *testing.T) {
	if err := AcceptsRecord(completeRecord()); err != nil {
		t.Errorf("expected complete record to be accepted, got %v", err)
	}
	if err := AcceptsRecord(completeRecord().Set(FieldMood, "ecstatic")); err == nil {
		t.Error("expected invalid mood to be rejected")
	}
}
