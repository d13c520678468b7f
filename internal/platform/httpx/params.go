package httpx

import (
	"fmt"
	"net/http"
	"time"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// AsOfParam reads the optional as_of query date, defaulting to today in UTC.
// It writes a problem response and returns false when the value is malformed.
func AsOfParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return shared.DateOf(time.Now()), true
	}
	asOf, err := shared.ParseDate(raw)
	if err != nil {
		Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("as_of %q must be YYYY-MM-DD", raw))
		return time.Time{}, false
	}
	return asOf, true
}
