package web

import (
	"net/http/httptest"
	"testing"
)

func TestFormatFilterFromQuery(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		wantName      string
		wantNameExact string
	}{
		{"no parameters", "/api/format", "", ""},
		{"name only", "/api/format?name=invoice", "invoice", ""},
		{"nameExact only", "/api/format?nameExact=invoice-v2", "", "invoice-v2"},
		{"both", "/api/format?name=inv&nameExact=invoice-v2", "inv", "invoice-v2"},
		{"empty values ignored", "/api/format?name=&nameExact=", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			filter := formatFilterFromQuery(r)

			if tt.wantName == "" {
				if filter.Name != nil {
					t.Errorf("Name = %q, want nil", *filter.Name)
				}
			} else if filter.Name == nil || *filter.Name != tt.wantName {
				t.Errorf("Name = %v, want %q", filter.Name, tt.wantName)
			}

			if tt.wantNameExact == "" {
				if filter.NameExact != nil {
					t.Errorf("NameExact = %q, want nil", *filter.NameExact)
				}
			} else if filter.NameExact == nil || *filter.NameExact != tt.wantNameExact {
				t.Errorf("NameExact = %v, want %q", filter.NameExact, tt.wantNameExact)
			}
		})
	}
}
