package intake

// Field names a single scalar slot of a Record. The string value is the key
// used in the serialized handoff payload.
type Field string

const (
	FieldName         Field = "name"
	FieldAge          Field = "age"
	FieldGender       Field = "gender"
	FieldConstitution Field = "constitution"
	FieldPulse        Field = "pulse"
	FieldTongue       Field = "tongue"
	FieldDigestion    Field = "digestion"
	FieldSleep        Field = "sleep"
	FieldStress       Field = "stress"
	FieldAppetite     Field = "appetite"
	FieldEnergy       Field = "energy"
	FieldMood         Field = "mood"
	FieldSymptomsText Field = "symptomsText"

	// Reserved: part of the payload shape, never populated or validated.
	FieldBowelMovement Field = "bowelMovement"
	FieldUrination     Field = "urination"
	FieldSkinCondition Field = "skinCondition"
)

// Fields lists every scalar field in form order.
var Fields = []Field{
	FieldName, FieldAge, FieldGender, FieldConstitution,
	FieldPulse, FieldTongue, FieldDigestion, FieldSleep,
	FieldStress, FieldAppetite, FieldEnergy, FieldMood,
	FieldSymptomsText,
	FieldBowelMovement, FieldUrination, FieldSkinCondition,
}

var knownFields = func() map[Field]bool {
	m := make(map[Field]bool, len(Fields))
	for _, f := range Fields {
		m[f] = true
	}
	return m
}()

// ParseField resolves a field name as it appears on the wire.
func ParseField(s string) (Field, bool) {
	f := Field(s)
	return f, knownFields[f]
}

// Option is one selectable value of an enumerated field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options holds the closed vocabulary of every enumerated field. Fields absent
// from this map take free text.
var Options = map[Field][]Option{
	FieldGender: {
		{"male", "Male"},
		{"female", "Female"},
		{"other", "Other"},
	},
	FieldConstitution: {
		{"vata", "Vata (Air + Space)"},
		{"pitta", "Pitta (Fire + Water)"},
		{"kapha", "Kapha (Earth + Water)"},
		{"vata-pitta", "Vata-Pitta"},
		{"pitta-kapha", "Pitta-Kapha"},
		{"vata-kapha", "Vata-Kapha"},
		{"tridosha", "Tridosha (Balanced)"},
	},
	FieldPulse: {
		{"vata-pulse", "Vata (Irregular, Quick)"},
		{"pitta-pulse", "Pitta (Strong, Jumping)"},
		{"kapha-pulse", "Kapha (Slow, Steady)"},
		{"weak", "Weak"},
		{"rapid", "Rapid"},
		{"normal", "Normal"},
	},
	FieldTongue: {
		{"pink-clean", "Pink & Clean"},
		{"white-coating", "White Coating"},
		{"yellow-coating", "Yellow Coating"},
		{"dry-cracked", "Dry & Cracked"},
		{"red-inflamed", "Red & Inflamed"},
		{"pale", "Pale"},
	},
	FieldDigestion: {
		{"strong", "Strong (Tikshna Agni)"},
		{"variable", "Variable (Vishama Agni)"},
		{"slow", "Slow (Manda Agni)"},
		{"normal", "Normal (Sama Agni)"},
	},
	FieldSleep: {
		{"sound", "Sound & Restful"},
		{"light", "Light Sleep"},
		{"interrupted", "Interrupted"},
		{"insomnia", "Insomnia"},
		{"excessive", "Excessive Sleep"},
	},
	FieldStress: {
		{"low", "Low"},
		{"moderate", "Moderate"},
		{"high", "High"},
		{"severe", "Severe"},
	},
	FieldAppetite: {
		{"strong", "Strong"},
		{"normal", "Normal"},
		{"weak", "Weak"},
		{"irregular", "Irregular"},
		{"excessive", "Excessive"},
	},
	FieldEnergy: {
		{"high", "High"},
		{"normal", "Normal"},
		{"low", "Low"},
		{"depleted", "Depleted"},
		{"variable", "Variable"},
	},
	FieldMood: {
		{"calm", "Calm & Peaceful"},
		{"anxious", "Anxious"},
		{"irritable", "Irritable"},
		{"depressed", "Depressed"},
		{"restless", "Restless"},
		{"balanced", "Balanced"},
	},
}

// Symptom is one entry of the checklist vocabulary.
type Symptom string

const (
	SymptomAnxiety           Symptom = "Anxiety & Restlessness"
	SymptomJointPain         Symptom = "Joint Pain & Stiffness"
	SymptomDigestiveIssues   Symptom = "Digestive Issues"
	SymptomConstipation      Symptom = "Constipation"
	SymptomInsomnia          Symptom = "Insomnia"
	SymptomDrySkin           Symptom = "Dry Skin"
	SymptomHeadaches         Symptom = "Headaches"
	SymptomIrregularAppetite Symptom = "Irregular Appetite"
	SymptomBloating          Symptom = "Bloating & Gas"
	SymptomAcidReflux        Symptom = "Acid Reflux"
	SymptomExcessiveHeat     Symptom = "Excessive Heat"
	SymptomSkinRashes        Symptom = "Skin Rashes"
	SymptomHairLoss          Symptom = "Hair Loss"
	SymptomExcessiveSweating Symptom = "Excessive Sweating"
	SymptomHeavyFeeling      Symptom = "Heavy Feeling"
	SymptomCongestion        Symptom = "Congestion"
	SymptomLethargy          Symptom = "Lethargy"
	SymptomWeightGain        Symptom = "Weight Gain"
	SymptomColdExtremities   Symptom = "Cold Hands/Feet"
	SymptomDepression        Symptom = "Depression"
)

// Symptoms is the checklist in display order. Symptom sets are always kept
// in this order.
var Symptoms = []Symptom{
	SymptomAnxiety, SymptomJointPain, SymptomDigestiveIssues, SymptomConstipation,
	SymptomInsomnia, SymptomDrySkin, SymptomHeadaches, SymptomIrregularAppetite,
	SymptomBloating, SymptomAcidReflux, SymptomExcessiveHeat, SymptomSkinRashes,
	SymptomHairLoss, SymptomExcessiveSweating, SymptomHeavyFeeling, SymptomCongestion,
	SymptomLethargy, SymptomWeightGain, SymptomColdExtremities, SymptomDepression,
}

var symptomRank = func() map[Symptom]int {
	m := make(map[Symptom]int, len(Symptoms))
	for i, s := range Symptoms {
		m[s] = i
	}
	return m
}()

// IsKnownSymptom reports whether s belongs to the checklist vocabulary.
func IsKnownSymptom(s Symptom) bool {
	_, ok := symptomRank[s]
	return ok
}

// Vocabulary is the presentation view of every closed vocabulary.
type Vocabulary struct {
	Fields   []Field            `json:"fields"`
	Required []Field            `json:"required"`
	Options  map[Field][]Option `json:"options"`
	Symptoms []Symptom          `json:"symptoms"`
}

// DescribeVocabulary returns the vocabularies a form needs to render itself.
func DescribeVocabulary() Vocabulary {
	return Vocabulary{
		Fields:   Fields,
		Required: append(append([]Field{}, patientInfoFields...), clinicalFields...),
		Options:  Options,
		Symptoms: Symptoms,
	}
}
