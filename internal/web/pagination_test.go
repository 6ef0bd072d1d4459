package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/centralrepo/centralrepo/internal/config"
	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/repository"
)

func pagingServer() *Server {
	return &Server{cfg: &config.Config{
		Search: config.SearchConfig{
			MaxPaginationSize:     1000,
			DefaultPaginationSize: 1000,
		},
	}}
}

func TestParsePagination(t *testing.T) {
	s := pagingServer()

	tests := []struct {
		name     string
		url      string
		wantPage int
		wantSize int
		wantErr  bool
	}{
		{"defaults", "/api/record/search", 0, 1000, false},
		{"explicit page and size", "/api/record/search?page=3&pageSize=25", 3, 25, false},
		{"size at cap", "/api/record/search?pageSize=1000", 0, 1000, false},
		{"size above cap", "/api/record/search?pageSize=1001", 0, 0, true},
		{"zero size", "/api/record/search?pageSize=0", 0, 0, true},
		{"negative page", "/api/record/search?page=-1", 0, 0, true},
		{"non-numeric page", "/api/record/search?page=abc", 0, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tc.url, nil)
			p, err := s.parsePagination(r)
			if tc.wantErr {
				if err == nil {
					t.Fatal("parsePagination() = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePagination() error = %v", err)
			}
			if p.Page != tc.wantPage || p.PageSize != tc.wantSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d", p.Page, p.PageSize, tc.wantPage, tc.wantSize)
			}
			if !p.WantCount {
				t.Error("WantCount should default to true for header support")
			}
		})
	}
}

func TestSetPageHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	result := &repository.PagedResult[model.Record]{
		Items:     make([]model.Record, 25),
		ItemCount: 1025,
		PageCount: 41,
	}
	setPageHeaders(w, result)

	if got := w.Header().Get("Repository-Item-Count"); got != "1025" {
		t.Errorf("Repository-Item-Count = %q, want 1025", got)
	}
	if got := w.Header().Get("Repository-Current-Page-Count"); got != "25" {
		t.Errorf("Repository-Current-Page-Count = %q, want 25", got)
	}
	if got := w.Header().Get("Repository-Page-Count"); got != "41" {
		t.Errorf("Repository-Page-Count = %q, want 41", got)
	}
}
