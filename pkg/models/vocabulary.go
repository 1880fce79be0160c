package models

import "slices"

// Vocabulary is a named, externally managed set of permitted tag values.
type Vocabulary struct {
	Name string   `json:"name" validate:"required"`
	Tags []string `json:"tags"`
}

// Contains reports whether tag is a member of the vocabulary.
func (v *Vocabulary) Contains(tag string) bool {
	return v != nil && slices.Contains(v.Tags, tag)
}
