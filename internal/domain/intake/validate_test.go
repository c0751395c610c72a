package intake

import (
	"errors"
	"testing"
)

func completeRecord() Record {
	return Record{}.
		Set(FieldName, "Asha").
		Set(FieldAge, "34").
		Set(FieldGender, "female").
		Set(FieldConstitution, "pitta").
		Set(FieldPulse, "pitta-pulse").
		Set(FieldTongue, "yellow-coating")
}

func TestValidate_Complete(t *testing.T) {
	r := completeRecord().ToggleSymptom(SymptomAcidReflux, true)

	valid, err := Validate(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid.Record().Equal(r) {
		t.Error("expected validated record to equal input")
	}
}

func TestValidate_MissingPatientInfo(t *testing.T) {
	r := completeRecord().Set(FieldAge, "")

	_, err := Validate(r)
	if !errors.Is(err, MissingPatientInfo) {
		t.Fatalf("expected MissingPatientInfo, got %v", err)
	}
	if err.Error() != "Please fill in all required patient information" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestValidate_MissingClinicalAssessment(t *testing.T) {
	r := completeRecord().Set(FieldTongue, "")

	_, err := Validate(r)
	if !errors.Is(err, MissingClinicalAssessment) {
		t.Fatalf("expected MissingClinicalAssessment, got %v", err)
	}
	if err.Error() != "Please provide essential Ayurvedic assessments" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestValidate_Scenarios(t *testing.T) {
	asha := Record{
		Name:         "Asha",
		Age:          "34",
		Gender:       "female",
		Constitution: "vata",
		Pulse:        "vata-pulse",
		Tongue:       "pink-clean",
	}
	withoutName := asha
	withoutName.Name = ""
	withoutPulse := asha
	withoutPulse.Pulse = ""

	tests := []struct {
		name    string
		record  Record
		wantErr error
	}{
		{"complete record", asha, nil},
		{"missing name", withoutName, MissingPatientInfo},
		{"missing pulse", withoutPulse, MissingClinicalAssessment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := Validate(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !valid.Record().Equal(tt.record) {
					t.Error("expected validated record to equal input")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_PatientInfoCheckedFirst(t *testing.T) {
	_, err := Validate(Record{})
	if !errors.Is(err, MissingPatientInfo) {
		t.Errorf("expected patient information to fail first, got %v", err)
	}
}

func TestValidate_EachRequiredField(t *testing.T) {
	for _, f := range patientInfoFields {
		if _, err := Validate(completeRecord().Set(f, "")); !errors.Is(err, MissingPatientInfo) {
			t.Errorf("clearing %s: expected MissingPatientInfo, got %v", f, err)
		}
	}
	for _, f := range clinicalFields {
		if _, err := Validate(completeRecord().Set(f, "")); !errors.Is(err, MissingClinicalAssessment) {
			t.Errorf("clearing %s: expected MissingClinicalAssessment, got %v", f, err)
		}
	}
}

func TestValidate_OptionalFieldsNotRequired(t *testing.T) {
	r := completeRecord()
	for _, f := range []Field{FieldDigestion, FieldSleep, FieldStress, FieldAppetite, FieldEnergy, FieldMood, FieldSymptomsText} {
		if r.Get(f) != "" {
			t.Fatalf("expected %s empty in fixture", f)
		}
	}
	if _, err := Validate(r); err != nil {
		t.Errorf("expected optional fields to be optional, got %v", err)
	}
}

func TestValidate_WhitespaceCountsAsPresent(t *testing.T) {
	if _, err := Validate(completeRecord().Set(FieldName, " ")); err != nil {
		t.Errorf("expected whitespace name to count as present, got %v", err)
	}
}

func TestValidate_AgeCheckedForPresenceOnly(t *testing.T) {
	if _, err := Validate(completeRecord().Set(FieldAge, "999")); err != nil {
		t.Errorf("expected out-of-range age to pass validation, got %v", err)
	}
}

func TestValidate_DoesNotModifyInput(t *testing.T) {
	r := completeRecord().Set(FieldGender, "")
	before := r.clone()

	_, _ = Validate(r)
	_, _ = Validate(r)

	if !r.Equal(before) {
		t.Error("expected input record unchanged")
	}
}

func TestValidRecord_RecordIsCopy(t *testing.T) {
	r := completeRecord().ToggleSymptom(SymptomCongestion, true)
	valid, err := Validate(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := valid.Record()
	out.Symptoms.items[0] = SymptomWeightGain

	if !valid.Record().HasSymptom(SymptomCongestion) {
		t.Error("expected validated record to be isolated from caller mutation")
	}
}

func TestValidationFailure_GroupAndCode(t *testing.T) {
	if MissingPatientInfo.Group() != "patient information" || MissingPatientInfo.Code() != "missing_patient_info" {
		t.Errorf("unexpected patient info failure: %s %s", MissingPatientInfo.Group(), MissingPatientInfo.Code())
	}
	if MissingClinicalAssessment.Group() != "Ayurvedic assessment" || MissingClinicalAssessment.Code() != "missing_clinical_assessment" {
		t.Errorf("unexpected clinical failure: %s %s", MissingClinicalAssessment.Group(), MissingClinicalAssessment.Code())
	}
}

func TestDescribeVocabulary(t *testing.T) {
	v := DescribeVocabulary()
	if len(v.Symptoms) != 20 {
		t.Errorf("expected 20 symptoms, got %d", len(v.Symptoms))
	}
	if len(v.Required) != 6 {
		t.Errorf("expected 6 required fields, got %d", len(v.Required))
	}
	if len(v.Options[FieldConstitution]) != 7 {
		t.Errorf("expected 7 constitutions, got %d", len(v.Options[FieldConstitution]))
	}
	if _, ok := v.Options[FieldName]; ok {
		t.Error("expected name to be free text")
	}
}
