package intake

// ValidationFailure names the first required group a record is missing. It
// carries no per-field detail.
type ValidationFailure int

const (
	MissingPatientInfo ValidationFailure = iota + 1
	MissingClinicalAssessment
)

var (
	patientInfoFields = []Field{FieldName, FieldAge, FieldGender}
	clinicalFields    = []Field{FieldPulse, FieldTongue, FieldConstitution}
)

func (f ValidationFailure) Error() string {
	switch f {
	case MissingPatientInfo:
		return "Please fill in all required patient information"
	case MissingClinicalAssessment:
		return "Please provide essential Ayurvedic assessments"
	}
	return "invalid intake record"
}

// Group is the form section the user needs to revisit.
func (f ValidationFailure) Group() string {
	switch f {
	case MissingPatientInfo:
		return "patient information"
	case MissingClinicalAssessment:
		return "Ayurvedic assessment"
	}
	return ""
}

// Code is a stable machine-readable identifier.
func (f ValidationFailure) Code() string {
	switch f {
	case MissingPatientInfo:
		return "missing_patient_info"
	case MissingClinicalAssessment:
		return "missing_clinical_assessment"
	}
	return "invalid"
}

// ValidRecord is a Record that passed Validate. Only Validate constructs one,
// so a Channel can never be handed an unchecked draft.
type ValidRecord struct {
	rec Record
}

// Record returns a copy of the validated record.
func (v ValidRecord) Record() Record {
	return v.rec.clone()
}

// Validate checks the two required groups in order: patient information,
// then the clinical assessment. The first failing group is returned as a
// ValidationFailure. Age is only checked for presence.
func Validate(r Record) (ValidRecord, error) {
	if !allPresent(r, patientInfoFields) {
		return ValidRecord{}, MissingPatientInfo
	}
	if !allPresent(r, clinicalFields) {
		return ValidRecord{}, MissingClinicalAssessment
	}
	return ValidRecord{rec: r.clone()}, nil
}

func allPresent(r Record, fields []Field) bool {
	for _, f := range fields {
		if r.Get(f) == "" {
			return false
		}
	}
	return true
}
