package intake

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Record is a patient intake assessment. It is a value type: every update
// returns a new Record and never touches the receiver. The JSON shape is the
// handoff payload read by the analysis stage.
type Record struct {
	Name          string     `json:"name"`
	Age           string     `json:"age"`
	Gender        string     `json:"gender"`
	Constitution  string     `json:"constitution"`
	Symptoms      SymptomSet `json:"symptoms"`
	Pulse         string     `json:"pulse"`
	Tongue        string     `json:"tongue"`
	Digestion     string     `json:"digestion"`
	Sleep         string     `json:"sleep"`
	Stress        string     `json:"stress"`
	Appetite      string     `json:"appetite"`
	BowelMovement string     `json:"bowelMovement"`
	Urination     string     `json:"urination"`
	Energy        string     `json:"energy"`
	Mood          string     `json:"mood"`
	SkinCondition string     `json:"skinCondition"`
	SymptomsText  string     `json:"symptomsText"`
}

func (r *Record) slot(f Field) *string {
	switch f {
	case FieldName:
		return &r.Name
	case FieldAge:
		return &r.Age
	case FieldGender:
		return &r.Gender
	case FieldConstitution:
		return &r.Constitution
	case FieldPulse:
		return &r.Pulse
	case FieldTongue:
		return &r.Tongue
	case FieldDigestion:
		return &r.Digestion
	case FieldSleep:
		return &r.Sleep
	case FieldStress:
		return &r.Stress
	case FieldAppetite:
		return &r.Appetite
	case FieldEnergy:
		return &r.Energy
	case FieldMood:
		return &r.Mood
	case FieldSymptomsText:
		return &r.SymptomsText
	case FieldBowelMovement:
		return &r.BowelMovement
	case FieldUrination:
		return &r.Urination
	case FieldSkinCondition:
		return &r.SkinCondition
	}
	return nil
}

// Get returns the value of f, or "" for an unknown field.
func (r Record) Get(f Field) string {
	if p := r.slot(f); p != nil {
		return *p
	}
	return ""
}

// Set returns a copy of r with f replaced by value. Unknown fields leave the
// copy unchanged. No domain checks happen here; see Accepts.
func (r Record) Set(f Field, value string) Record {
	out := r.clone()
	if p := out.slot(f); p != nil {
		*p = value
	}
	return out
}

// ToggleSymptom returns a copy of r with s added (present) or removed. Both
// directions are idempotent, and names outside the vocabulary are ignored.
func (r Record) ToggleSymptom(s Symptom, present bool) Record {
	out := r.clone()
	if present {
		out.Symptoms = r.Symptoms.With(s)
	} else {
		out.Symptoms = r.Symptoms.Without(s)
	}
	return out
}

// HasSymptom reports whether s is selected.
func (r Record) HasSymptom(s Symptom) bool {
	return r.Symptoms.Has(s)
}

// Equal reports whether two records hold the same values.
func (r Record) Equal(o Record) bool {
	for _, f := range Fields {
		if r.Get(f) != o.Get(f) {
			return false
		}
	}
	return r.Symptoms.Equal(o.Symptoms)
}

func (r Record) clone() Record {
	out := r
	out.Symptoms = r.Symptoms.copy()
	return out
}

// SymptomSet is a set of vocabulary symptoms held in vocabulary order. The
// zero value is the empty set. Methods never modify the receiver.
type SymptomSet struct {
	items []Symptom
}

// NewSymptomSet builds a set from names, dropping duplicates. Unknown names
// are rejected.
func NewSymptomSet(names ...Symptom) (SymptomSet, error) {
	var set SymptomSet
	for _, n := range names {
		if !IsKnownSymptom(n) {
			return SymptomSet{}, fmt.Errorf("unknown symptom %q", n)
		}
		set = set.With(n)
	}
	return set, nil
}

// Has reports membership.
func (s SymptomSet) Has(sym Symptom) bool {
	for _, it := range s.items {
		if it == sym {
			return true
		}
	}
	return false
}

// With returns s plus sym.
func (s SymptomSet) With(sym Symptom) SymptomSet {
	if !IsKnownSymptom(sym) || s.Has(sym) {
		return s.copy()
	}
	items := append(s.copy().items, sym)
	sort.Slice(items, func(i, j int) bool {
		return symptomRank[items[i]] < symptomRank[items[j]]
	})
	return SymptomSet{items: items}
}

// Without returns s minus sym.
func (s SymptomSet) Without(sym Symptom) SymptomSet {
	var items []Symptom
	for _, it := range s.items {
		if it != sym {
			items = append(items, it)
		}
	}
	return SymptomSet{items: items}
}

// Len returns the number of selected symptoms.
func (s SymptomSet) Len() int { return len(s.items) }

// Slice returns the members in vocabulary order.
func (s SymptomSet) Slice() []Symptom {
	return append([]Symptom{}, s.items...)
}

// Equal reports whether both sets have the same members.
func (s SymptomSet) Equal(o SymptomSet) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for i := range s.items {
		if s.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

func (s SymptomSet) copy() SymptomSet {
	if len(s.items) == 0 {
		return SymptomSet{}
	}
	return SymptomSet{items: append([]Symptom(nil), s.items...)}
}

// MarshalJSON encodes the set as an array, never null.
func (s SymptomSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON accepts an array of symptom names. Duplicates collapse;
// names outside the vocabulary are an error.
func (s *SymptomSet) UnmarshalJSON(data []byte) error {
	var names []Symptom
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set, err := NewSymptomSet(names...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
