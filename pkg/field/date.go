package field

import (
	"regexp"
	"strings"
	"time"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// DateLayout is the canonical date format.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func init() {
	Register(datePipeline{})
}

// datePipeline is lenient: anything that is not a calendar date becomes null.
type datePipeline struct{}

func (datePipeline) Type() core.FieldType { return core.FieldDate }

func (datePipeline) Sanitize(input string) string { return strings.TrimSpace(input) }

func (datePipeline) Parse(input string, _ core.ColumnDescriptor) (core.Value, error) {
	if d, ok := ParseDate(input); ok {
		return core.StringValue(d), nil
	}
	return core.Null(), nil
}

func (p datePipeline) Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error) {
	if s, ok := v.Str(); ok {
		return p.Parse(s, col)
	}
	return core.Null(), nil
}

func (datePipeline) Display(v core.Value) string {
	s, _ := v.Str()
	if d, ok := ParseDate(s); ok {
		return d
	}
	return ""
}

func (datePipeline) Valid(v core.Value, _ core.ColumnDescriptor) bool {
	if v.IsNull() {
		return true
	}
	s, ok := v.Str()
	if !ok {
		return false
	}
	_, ok = ParseDate(s)
	return ok
}

// ParseDate accepts YYYY-MM-DD or an ISO-8601 timestamp and returns the
// YYYY-MM-DD date part. Empty, "null", "undefined" and impossible dates fail.
func ParseDate(input string) (string, bool) {
	s := strings.TrimSpace(input)
	switch s {
	case "", "null", "undefined":
		return "", false
	}
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	if !datePattern.MatchString(s) {
		return "", false
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", false
	}
	return s, true
}
