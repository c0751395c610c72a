package intake

import (
	"fmt"
	"strconv"
)

const (
	MinAge = 0
	MaxAge = 150
)

// Accepts checks value against the input domain of f. It is the input-layer
// constraint applied before Set; Validate never repeats it. An empty value
// clears a field and is always accepted.
func Accepts(f Field, value string) error {
	if !knownFields[f] {
		return fmt.Errorf("unknown field: %s", f)
	}
	if value == "" {
		return nil
	}
	if f == FieldAge {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("age must be a whole number")
		}
		if n < MinAge || n > MaxAge {
			return fmt.Errorf("age must be between %d and %d", MinAge, MaxAge)
		}
		return nil
	}
	opts, ok := Options[f]
	if !ok {
		return nil
	}
	for _, o := range opts {
		if o.Value == value {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %s", f, value)
}

// AcceptsRecord applies Accepts to every field of r.
func AcceptsRecord(r Record) error {
	for _, f := range Fields {
		if err := Accepts(f, r.Get(f)); err != nil {
			return err
		}
	}
	return nil
}
