package formats

import (
	"regexp"
	"strconv"

	"github.com/idrisskacou/Log-Store-2-DB/models"
)

var (
	// Example: 127.0.0.1 - - [05/Mar/2025:12:34:56 +0000] "GET /index.html HTTP/1.1" 200 1234
	// Only the start is anchored; trailing fields (referer, user agent) are ignored.
	accessLogRegex = regexp.MustCompile(`^\S+ - - \[(?P<timestamp>.+?)\] "\S+ \S+ \S+" (?P<status>\d+) (?P<number_of_request>\d+)`)

	timestampIdx = accessLogRegex.SubexpIndex("timestamp")
	statusIdx    = accessLogRegex.SubexpIndex("status")
	bytesIdx     = accessLogRegex.SubexpIndex("number_of_request")
)

// AccessLogParser extracts records from common-log-format access lines.
type AccessLogParser struct {
	statuses *StatusTable
}

// NewAccessLogParser returns a parser that labels records using statuses.
// A nil table falls back to NewStatusTable().
func NewAccessLogParser(statuses *StatusTable) *AccessLogParser {
	if statuses == nil {
		statuses = NewStatusTable()
	}
	return &AccessLogParser{statuses: statuses}
}

// Name returns the format name.
func (p *AccessLogParser) Name() string {
	return "access_log"
}

// Parse matches line against the access-log pattern. The timestamp is kept
// as written; lines that don't match or overflow an int produce no record.
func (p *AccessLogParser) Parse(line string) (models.LogRecord, bool) {
	m := accessLogRegex.FindStringSubmatch(line)
	if m == nil {
		return models.LogRecord{}, false
	}

	status, err := strconv.Atoi(m[statusIdx])
	if err != nil {
		return models.LogRecord{}, false
	}
	numberOfRequest, err := strconv.Atoi(m[bytesIdx])
	if err != nil {
		return models.LogRecord{}, false
	}

	return models.LogRecord{
		Timestamp:         m[timestampIdx],
		Status:            status,
		NumberOfRequest:   numberOfRequest,
		StatusDescription: p.statuses.Describe(status),
	}, true
}
