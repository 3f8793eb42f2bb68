package model

import "time"

// Verdict is the outcome of a single probe. The string values are the ones
// persisted in the cache.
type Verdict string

const (
	VerdictFound    Verdict = "FOUND"
	VerdictNotFound Verdict = "NOT FOUND"
	VerdictError    Verdict = "ERROR"
	VerdictTimeout  Verdict = "TIMEOUT"
)

// NoURL is reported for platforms whose URL template is unusable.
const NoURL = "N/A"

func (v Verdict) Valid() bool {
	switch v {
	case VerdictFound, VerdictNotFound, VerdictError, VerdictTimeout:
		return true
	}
	return false
}

// Result is one platform's answer for one username, either probed live or
// reconstructed from the cache.
type Result struct {
	Site         string  `json:"siteName"`
	URL          string  `json:"url"`
	Status       Verdict `json:"status"`
	HTTPCode     int     `json:"httpCode"`
	ResponseTime float64 `json:"responseTime"` // seconds, two decimals
	Cached       bool    `json:"cached"`
}

func (r Result) Found() bool {
	return r.Status == VerdictFound
}

// Report is the aggregate of a whole scan.
type Report struct {
	ScanID    string        `json:"scanId"`
	Username  string        `json:"username"`
	Cached    []Result      `json:"cached"`
	Probed    []Result      `json:"probed"`
	Found     int           `json:"found"`
	Total     int           `json:"total"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`

	// Interrupted is set when the scan's context ended before every site
	// finished; unfinished platforms are then reported as ERROR or TIMEOUT.
	Interrupted bool `json:"interrupted"`
}

// All returns cached results followed by probed ones.
func (r Report) All() []Result {
	out := make([]Result, 0, len(r.Cached)+len(r.Probed))
	out = append(out, r.Cached...)
	return append(out, r.Probed...)
}
