package shared

import (
	"net/http"
	"strconv"

	"truckbooks/internal/transport/http/api"
)

type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset from the query. Values that do not parse
// or are out of range fall back to the defaults; limit is capped at max.
func ParsePage(r *http.Request, defaultLimit, max int) Page {
	page := Page{Limit: defaultLimit}
	query := r.URL.Query()
	if n, err := strconv.Atoi(query.Get("limit")); err == nil && n > 0 {
		page.Limit = min(n, max)
	}
	if n, err := strconv.Atoi(query.Get("offset")); err == nil && n >= 0 {
		page.Offset = n
	}
	return page
}

// WriteList sends one page of results with the total in both the envelope
// meta and the X-Total-Count header.
func WriteList(w http.ResponseWriter, data any, page Page, total int, requestID string) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.SuccessList(w, data, api.ListMeta{Total: total, Limit: page.Limit, Offset: page.Offset}, requestID)
}
