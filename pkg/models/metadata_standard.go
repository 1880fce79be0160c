package models

import "time"

// MetadataStandard is a named, versioned schema family. Name and version are unique together.
type MetadataStandard struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"                validate:"required,min=2"`
	Version   string         `json:"version"             validate:"required"`
	Schema    map[string]any `json:"schema"              validate:"required"`
	Template  map[string]any `json:"template,omitempty"`
	ParentID  *string        `json:"parent_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MetadataJSONAttrMap maps a JSON pointer inside a metadata document to a flat record attribute.
// There is exactly one mapping per (standard, record attribute).
type MetadataJSONAttrMap struct {
	ID         string `json:"id"`
	StandardID string `json:"standard_id" validate:"required"`
	JSONPath   string `json:"json_path"   validate:"required,startswith=/"`
	RecordAttr string `json:"record_attr" validate:"required"`
	IsKey      bool   `json:"is_key"`
}
