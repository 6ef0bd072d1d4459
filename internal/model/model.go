// Package model defines the domain types shared by every layer:
// formats (named column schemas), records (schema-conformant JSON
// documents), upload sessions (ingestion batches) and entitlements
// (per-user format access grants).
package model

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ColumnKind is the declared type of a format column.
type ColumnKind string

const (
	KindNumber   ColumnKind = "number"
	KindString   ColumnKind = "string"
	KindDatetime ColumnKind = "datetime"
)

// Valid reports whether k is one of the known column kinds.
func (k ColumnKind) Valid() bool {
	switch k {
	case KindNumber, KindString, KindDatetime:
		return true
	}
	return false
}

// ColumnSchema declares one typed column of a format. Regex is only
// legal on string columns and must itself compile.
type ColumnSchema struct {
	Name  string     `json:"name"`
	Kind  ColumnKind `json:"kind"`
	Regex string     `json:"regex,omitempty"`
}

// Schema is the ordered column list of a format.
type Schema []ColumnSchema

// Validate checks the format-definition-time invariants: unique column
// names, known kinds, and regex constraints restricted to string
// columns with compilable patterns.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: schema has no columns", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s))
	for _, col := range s {
		if col.Name == "" {
			return fmt.Errorf("%w: column with empty name", ErrInvalidSchema)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidSchema, col.Name)
		}
		seen[col.Name] = struct{}{}
		if !col.Kind.Valid() {
			return fmt.Errorf("%w: column %q has unknown kind %q", ErrInvalidSchema, col.Name, col.Kind)
		}
		if col.Regex != "" {
			if col.Kind != KindString {
				return fmt.Errorf("%w: column %q is not a string column", ErrInvalidRegex, col.Name)
			}
			if _, err := regexp.Compile(col.Regex); err != nil {
				return fmt.Errorf("%w: column %q: %v", ErrInvalidRegex, col.Name, err)
			}
		}
	}
	return nil
}

// Column returns the schema entry for name, if declared.
func (s Schema) Column(name string) (ColumnSchema, bool) {
	for _, col := range s {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnSchema{}, false
}

// Format is a named, versionless record schema owned by administrators.
// The schema is immutable after creation.
type Format struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"createdAt"`
	Schema           Schema    `json:"schema"`
	RetentionMinutes int64     `json:"retentionPeriodMinutes"`
}

// User is the resolved identity provided by the authentication layer.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	IsSuperuser bool      `json:"isSuperuser"`
	Active      bool      `json:"active"`
}

// Access is the entitlement level a user holds on a format.
type Access string

const (
	AccessReadOnly  Access = "R"
	AccessWriteOnly Access = "W"
	AccessReadWrite Access = "RW"
)

// CanRead reports whether the access level permits searching a format.
func (a Access) CanRead() bool { return a == AccessReadOnly || a == AccessReadWrite }

// CanWrite reports whether the access level permits uploading records.
func (a Access) CanWrite() bool { return a == AccessWriteOnly || a == AccessReadWrite }

// Valid reports whether a is a known access level.
func (a Access) Valid() bool {
	return a == AccessReadOnly || a == AccessWriteOnly || a == AccessReadWrite
}

// Entitlement grants one user one access level on one format.
type Entitlement struct {
	UserID    uuid.UUID `json:"userId"`
	FormatID  int64     `json:"formatId"`
	CreatedAt time.Time `json:"createdAt"`
	Access    Access    `json:"access"`
}

// Outcome records whether an ingestion batch was persisted.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeError   Outcome = "ERROR"
)

// UploadSession groups one ingestion batch and its validation outcome.
// Records belong to exactly one session and are deleted with it.
type UploadSession struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	RecordCount int       `json:"recordCount"`
	FormatID    int64     `json:"formatId"`
	UserID      uuid.UUID `json:"userId"`
	Outcome     Outcome   `json:"outcome"`
	Detail      string    `json:"detail"`
}

// Document is the dynamic payload of one record. Values are the
// JSON-decoded representation (string, float64, bool, ...), constrained
// by the owning format's schema at upload time.
type Document = map[string]any

// Record is one immutable schema-conformant document.
type Record struct {
	ID              int64     `json:"id"`
	UploadSessionID int64     `json:"uploadSessionId"`
	FormatID        int64     `json:"formatId"`
	Data            Document  `json:"data"`
}
