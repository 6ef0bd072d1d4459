package model

import (
	"errors"
	"strings"
	"testing"
)

func testFormat() *Format {
	return &Format{
		ID:   1,
		Name: "invoices",
		Schema: Schema{
			{Name: "amount", Kind: KindNumber},
			{Name: "customer", Kind: KindString},
			{Name: "sku", Kind: KindString, Regex: `^[A-Z]{3}-\d{4}$`},
			{Name: "issuedAt", Kind: KindDatetime},
		},
	}
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr error
	}{
		{
			name: "valid schema",
			schema: Schema{
				{Name: "amount", Kind: KindNumber},
				{Name: "name", Kind: KindString, Regex: "^a+$"},
			},
		},
		{
			name:    "empty schema",
			schema:  Schema{},
			wantErr: ErrInvalidSchema,
		},
		{
			name: "duplicate column name",
			schema: Schema{
				{Name: "amount", Kind: KindNumber},
				{Name: "amount", Kind: KindString},
			},
			wantErr: ErrInvalidSchema,
		},
		{
			name: "unknown kind",
			schema: Schema{
				{Name: "amount", Kind: "decimal"},
			},
			wantErr: ErrInvalidSchema,
		},
		{
			name: "regex on number column",
			schema: Schema{
				{Name: "amount", Kind: KindNumber, Regex: "^1$"},
			},
			wantErr: ErrInvalidRegex,
		},
		{
			name: "regex does not compile",
			schema: Schema{
				{Name: "name", Kind: KindString, Regex: "["},
			},
			wantErr: ErrInvalidRegex,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.schema.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateBatch(t *testing.T) {
	format := testFormat()

	tests := []struct {
		name       string
		docs       []Document
		wantIndex  int
		wantColumn string
		wantReason string // substring
	}{
		{
			name: "valid batch",
			docs: []Document{
				{"amount": float64(12.5), "customer": "acme", "sku": "ABC-1234", "issuedAt": "2026-01-02T15:04:05Z"},
				{"amount": float64(7)},
			},
			wantIndex: -1,
		},
		{
			name:      "empty batch",
			docs:      nil,
			wantIndex: 0, wantReason: "no documents",
		},
		{
			name: "empty document",
			docs: []Document{
				{"amount": float64(1)},
				{},
			},
			wantIndex: 1, wantReason: "empty",
		},
		{
			name: "undeclared column",
			docs: []Document{
				{"amount": float64(1), "color": "red"},
			},
			wantIndex: 0, wantColumn: "color", wantReason: "not declared",
		},
		{
			name: "wrong kind",
			docs: []Document{
				{"amount": "12.5"},
			},
			wantIndex: 0, wantColumn: "amount", wantReason: "expected a number",
		},
		{
			name: "regex mismatch",
			docs: []Document{
				{"sku": "abc-12"},
			},
			wantIndex: 0, wantColumn: "sku", wantReason: "does not match",
		},
		{
			name: "bad datetime",
			docs: []Document{
				{"issuedAt": "yesterday"},
			},
			wantIndex: 0, wantColumn: "issuedAt", wantReason: "not an ISO datetime",
		},
		{
			name: "date-only datetime accepted",
			docs: []Document{
				{"issuedAt": "2026-01-02"},
			},
			wantIndex: -1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBatch(format, tc.docs)
			if tc.wantIndex < 0 {
				if err != nil {
					t.Fatalf("ValidateBatch() = %v, want nil", err)
				}
				return
			}
			var batchErr *BatchError
			if !errors.As(err, &batchErr) {
				t.Fatalf("ValidateBatch() = %v, want *BatchError", err)
			}
			if batchErr.Index != tc.wantIndex {
				t.Errorf("Index = %d, want %d", batchErr.Index, tc.wantIndex)
			}
			if batchErr.Column != tc.wantColumn {
				t.Errorf("Column = %q, want %q", batchErr.Column, tc.wantColumn)
			}
			if !strings.Contains(batchErr.Reason, tc.wantReason) {
				t.Errorf("Reason = %q, want substring %q", batchErr.Reason, tc.wantReason)
			}
		})
	}
}

func TestAccessLevels(t *testing.T) {
	tests := []struct {
		access    Access
		canRead   bool
		canWrite  bool
		wantValid bool
	}{
		{AccessReadOnly, true, false, true},
		{AccessWriteOnly, false, true, true},
		{AccessReadWrite, true, true, true},
		{Access("X"), false, false, false},
	}

	for _, tc := range tests {
		if got := tc.access.CanRead(); got != tc.canRead {
			t.Errorf("%q.CanRead() = %v, want %v", tc.access, got, tc.canRead)
		}
		if got := tc.access.CanWrite(); got != tc.canWrite {
			t.Errorf("%q.CanWrite() = %v, want %v", tc.access, got, tc.canWrite)
		}
		if got := tc.access.Valid(); got != tc.wantValid {
			t.Errorf("%q.Valid() = %v, want %v", tc.access, got, tc.wantValid)
		}
	}
}
