package models

import (
	"time"
)

// TimestampLayout is the access-log time format, e.g. 05/Mar/2025:12:34:56 +0000.
const TimestampLayout = "02/Jan/2006:15:04:05 -0700"

// LogRecord represents one parsed access-log line.
// It's created per line, written once to the logs table and never read back.
type LogRecord struct {
	Timestamp         string `json:"timestamp"`          // As found in the log line
	Status            int    `json:"status"`             // HTTP status code
	NumberOfRequest   int    `json:"number_of_request"`  // Byte count; DB column is number_of_request
	StatusDescription string `json:"status_description"` // Derived from Status
}

// Time parses Timestamp using TimestampLayout.
func (r LogRecord) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, r.Timestamp)
}
