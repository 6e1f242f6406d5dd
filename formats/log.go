package formats

import (
	"github.com/idrisskacou/Log-Store-2-DB/models"
)

// LineParser defines an interface for turning raw log lines into records.
type LineParser interface {
	// Parse attempts to extract a record from a single line.
	// ok is false when the line does not follow the expected format.
	Parse(line string) (record models.LogRecord, ok bool)

	// Name returns the name of the log format this parser handles.
	Name() string
}
