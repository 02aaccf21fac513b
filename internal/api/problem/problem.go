package problem

import (
	"encoding/json"
	"net/http"
)

const contentType = "application/problem+json"
const baseTypeURL = "https://errors.ramphub.africa/"

// Details represents RFC 7807 Problem Details. Extensions carries
// problem-specific members, flattened into the JSON object.
type Details struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	RequestID  string         `json:"request_id"`
	Extensions map[string]any `json:"-"`
}

func (d Details) MarshalJSON() ([]byte, error) {
	type alias Details
	base, err := json.Marshal(alias(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extensions) == 0 {
		return base, nil
	}
	merged := make(map[string]any, len(d.Extensions)+6)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.Extensions {
		if _, reserved := merged[k]; reserved {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

func Type(slug string) string {
	return baseTypeURL + slug
}

// Write sends RFC 7807-compliant errors.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	WriteWithExtensions(w, r, status, problemType, title, detail, nil)
}

// WriteWithExtensions sends RFC 7807-compliant errors with extension members.
func WriteWithExtensions(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string, extensions map[string]any) {
	if title == "" {
		title = http.StatusText(status)
	}
	if problemType == "" {
		problemType = "about:blank"
	}
	instance := ""
	requestID := ""
	if r != nil {
		instance = r.URL.Path
		requestID = r.Header.Get("X-Trace-ID")
	}
	if requestID == "" {
		requestID = w.Header().Get("X-Trace-ID")
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Details{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		RequestID:  requestID,
		Extensions: extensions,
	})
}
