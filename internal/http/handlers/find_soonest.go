package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wolfman30/soonest-slot/internal/availability"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

const maxRequestBody = 1 << 20

// soonestFinder is satisfied by *availability.Finder.
type soonestFinder interface {
	FindSoonest(ctx context.Context, addonNames []string) (*availability.Result, error)
	LookaheadDays() int
}

// EarliestSlot is the speakable summary of the first opening.
type EarliestSlot struct {
	Datetime      string `json:"datetime"`
	EndTime       string `json:"end_time"`
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	ServiceID     string `json:"service_id"`
	DayOfWeek     string `json:"day_of_week"`
	FormattedDate string `json:"formatted_date"`
	FormattedTime string `json:"formatted_time"`
	FormattedFull string `json:"formatted_full"`
}

// FoundResponse is returned when at least one opening exists.
type FoundResponse struct {
	Success            bool                   `json:"success"`
	Found              bool                   `json:"found"`
	EarliestSlot       EarliestSlot           `json:"earliest_slot"`
	TotalOpeningsFound int                    `json:"total_openings_found"`
	BarbersScanned     int                    `json:"barbers_scanned"`
	DateRange          availability.DateRange `json:"date_range"`
	AllOpenings        []availability.Opening `json:"all_openings"`
	Message            string                 `json:"message"`
}

// NotFoundResponse is returned when the sweep found nothing.
type NotFoundResponse struct {
	Success        bool                   `json:"success"`
	Found          bool                   `json:"found"`
	Message        string                 `json:"message"`
	DateRange      availability.DateRange `json:"date_range"`
	BarbersScanned int                    `json:"barbers_scanned"`
}

// ErrorResponse is returned when the search could not run at all.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// FindSoonestHandler serves POST /find-soonest.
type FindSoonestHandler struct {
	finder soonestFinder
	logger *logging.Logger
}

func NewFindSoonestHandler(finder soonestFinder, logger *logging.Logger) *FindSoonestHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FindSoonestHandler{finder: finder, logger: logger}
}

// ServeHTTP runs one search. Domain outcomes, including provider failures,
// are reported in the body with status 200; only an unreadable body is a 400.
func (h *FindSoonestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		h.logger.Warn("find-soonest: failed to read body", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	addons, err := parseAdditionalServices(body)
	if err != nil {
		h.logger.Warn("find-soonest: malformed body", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	res, err := h.finder.FindSoonest(r.Context(), addons)
	if err != nil {
		h.logger.Error("find-soonest: search failed", "error", err)
		writeJSON(w, http.StatusOK, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	if !res.Found || res.Earliest == nil {
		writeJSON(w, http.StatusOK, NotFoundResponse{
			Success:        true,
			Found:          false,
			Message:        "No availability found across any barbers in the next " + pluralDays(h.finder.LookaheadDays()),
			DateRange:      res.Range,
			BarbersScanned: res.StaffScanned,
		})
		return
	}

	earliest := res.Earliest
	writeJSON(w, http.StatusOK, FoundResponse{
		Success: true,
		Found:   true,
		EarliestSlot: EarliestSlot{
			Datetime:      earliest.StartTime,
			EndTime:       earliest.EndTime,
			EmployeeID:    earliest.EmployeeID,
			EmployeeName:  earliest.EmployeeName,
			ServiceID:     res.PrimaryService,
			DayOfWeek:     earliest.DayOfWeek,
			FormattedDate: earliest.FormattedDate,
			FormattedTime: earliest.FormattedTime,
			FormattedFull: earliest.FormattedFull,
		},
		TotalOpeningsFound: res.TotalFound,
		BarbersScanned:     res.StaffScanned,
		DateRange:          res.Range,
		AllOpenings:        res.Openings,
		Message:            fmt.Sprintf("Next available: %s with %s", earliest.FormattedFull, earliest.EmployeeName),
	})
}

// parseAdditionalServices pulls string entries out of additional_services.
// Anything that is valid JSON but not the expected shape means "no add-ons".
func parseAdditionalServices(body []byte) ([]string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, nil
	}
	list, ok := obj["additional_services"].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
