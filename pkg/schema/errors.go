package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSchema is returned when a schema document fails self-validation.
// It signals a programmer error in the schema, never a problem with the validated data.
var ErrMalformedSchema = errors.New("malformed schema")

// MalformedSchemaError lists every problem found while checking a schema.
type MalformedSchemaError struct {
	Problems []string
}

func (e *MalformedSchemaError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformedSchema, strings.Join(e.Problems, "; "))
}

func (e *MalformedSchemaError) Is(target error) bool {
	return target == ErrMalformedSchema
}

func malformed(problems ...string) error {
	return &MalformedSchemaError{Problems: problems}
}

// IsMalformedSchema checks if an error reports a malformed schema.
func IsMalformedSchema(err error) bool {
	return errors.Is(err, ErrMalformedSchema)
}
