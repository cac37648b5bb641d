package meevo

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultTimeout        = 20 * time.Second
	defaultRosterTimeout  = 5 * time.Second
	defaultScanTimeout    = 5 * time.Second
	defaultRosterPageSize = 100

	// ScanDateType and ScanTimeType value for "between start and end".
	scanTypeRange = 1
)

// ErrUnauthorized is matched (via errors.Is) by StatusError values carrying a 401.
var ErrUnauthorized = errors.New("meevo: unauthorized")

// StatusError is returned when Meevo answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("meevo: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == 401 {
		return ErrUnauthorized
	}
	return nil
}

// Token is a bearer credential with an absolute expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Employee is one row of the Meevo employee listing.
type Employee struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	NickName    string `json:"nickName"`
	ObjectState int    `json:"objectState"`
}

// ScanService asks for openings of one service, optionally restricted to employees.
type ScanService struct {
	ServiceID   string   `json:"ServiceId"`
	EmployeeIDs []string `json:"EmployeeIds"`
}

// ScanQuery is the caller-controlled part of a scan/openings request.
// Dates are "2006-01-02", times are "15:04" in the location's local time.
type ScanQuery struct {
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
	Services  []ScanService
}

// ServiceOpening is a single opening as returned by scan/openings.
type ServiceOpening struct {
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	Date          string   `json:"date"`
	ServiceID     string   `json:"serviceId"`
	ServiceName   string   `json:"serviceName"`
	EmployeePrice *float64 `json:"employeePrice"`
}

type authRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type employeesResponse struct {
	Data []Employee `json:"data"`
}

type scanRequest struct {
	LocationID   int           `json:"LocationId"`
	TenantID     int           `json:"TenantId"`
	ScanDateType int           `json:"ScanDateType"`
	StartDate    string        `json:"StartDate"`
	EndDate      string        `json:"EndDate"`
	ScanTimeType int           `json:"ScanTimeType"`
	StartTime    string        `json:"StartTime"`
	EndTime      string        `json:"EndTime"`
	ScanServices []ScanService `json:"ScanServices"`
}

type scanResponse struct {
	Data []struct {
		ServiceOpenings []ServiceOpening `json:"serviceOpenings"`
	} `json:"data"`
}
