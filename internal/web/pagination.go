package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/centralrepo/centralrepo/internal/repository"
)

// Response headers carrying pagination totals.
const (
	headerItemCount        = "Repository-Item-Count"
	headerCurrentPageCount = "Repository-Current-Page-Count"
	headerPageCount        = "Repository-Page-Count"
)

// parsePagination reads page and pageSize query parameters, applying
// the configured default and cap. Pages are zero-based.
func (s *Server) parsePagination(r *http.Request) (repository.Pagination, error) {
	p := repository.Pagination{
		PageSize:  s.cfg.Search.DefaultPaginationSize,
		WantCount: true,
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("invalid page %q", raw)
		}
		p.Page = page
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("invalid pageSize %q", raw)
		}
		p.PageSize = size
	}

	if err := p.Validate(s.cfg.Search.MaxPaginationSize); err != nil {
		return p, err
	}
	return p, nil
}

func parseInt64(raw string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	return v, err == nil
}

func badParam(name, value string) error {
	return fmt.Errorf("invalid %s %q", name, value)
}

// setPageHeaders writes the pagination totals for a paged result.
func setPageHeaders[T any](w http.ResponseWriter, result *repository.PagedResult[T]) {
	w.Header().Set(headerItemCount, strconv.FormatInt(result.ItemCount, 10))
	w.Header().Set(headerCurrentPageCount, strconv.Itoa(len(result.Items)))
	w.Header().Set(headerPageCount, strconv.FormatInt(result.PageCount, 10))
}
