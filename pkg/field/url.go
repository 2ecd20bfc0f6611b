package field

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

func init() {
	Register(urlPipeline{})
}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}$`)
	schemePattern = regexp.MustCompile(`(?i)^https?://`)
)

// urlPipeline stores links as absolute URLs.
type urlPipeline struct{}

func (urlPipeline) Type() core.FieldType { return core.FieldURL }

func (urlPipeline) Sanitize(input string) string { return strings.TrimSpace(input) }

func (urlPipeline) Parse(input string, col core.ColumnDescriptor) (core.Value, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return core.Null(), nil
	}
	if !ValidateURL(s) {
		return core.Null(), invalid(col, core.FieldURL, input, "not a URL, domain or email address")
	}
	return core.StringValue(FormatURL(s)), nil
}

func (p urlPipeline) Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error) {
	switch v.Kind() {
	case core.KindNull:
		return core.Null(), nil
	case core.KindString:
		s, _ := v.Str()
		return p.Parse(s, col)
	}
	return core.Null(), invalid(col, core.FieldURL, v.Text(), "not a URL")
}

func (urlPipeline) Display(v core.Value) string {
	s, ok := v.Str()
	if !ok {
		return v.Text()
	}
	return StripURLForDisplay(s)
}

func (urlPipeline) Valid(v core.Value, _ core.ColumnDescriptor) bool {
	if v.IsNull() {
		return true
	}
	s, ok := v.Str()
	return ok && ValidateURL(s)
}

// FormatURL canonicalizes a link. Emails become https://<domain>; anything
// without an http(s) scheme gets https:// prepended, keeping a www. prefix.
func FormatURL(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "@") && !strings.Contains(s, "://") {
		return "https://" + s[strings.LastIndex(s, "@")+1:]
	}
	if loc := schemePattern.FindStringIndex(s); loc != nil {
		return strings.ToLower(s[:loc[1]]) + s[loc[1]:]
	}
	return "https://" + s
}

// StripURLForDisplay removes the https:// prefix that FormatURL adds.
// http:// and www. are kept so FormatURL can restore the exact link.
func StripURLForDisplay(s string) string {
	if len(s) >= len("https://") && strings.EqualFold(s[:len("https://")], "https://") {
		return s[len("https://"):]
	}
	return s
}

// ValidateURL accepts an email address, an absolute http(s) URL or a domain
// name (optionally prefixed with www.). Empty input is valid.
func ValidateURL(input string) bool {
	s := strings.TrimSpace(input)
	if s == "" {
		return true
	}
	if emailPattern.MatchString(s) {
		return true
	}
	if isAbsoluteURL(s) {
		return true
	}
	return isDomain(s)
}

func isAbsoluteURL(s string) bool {
	if !schemePattern.MatchString(s) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Host != "" && !strings.ContainsAny(u.Host, " \t")
}

func isDomain(s string) bool {
	host := s
	if len(host) >= 4 && strings.EqualFold(host[:4], "www.") {
		host = host[4:]
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return false
	}
	return domainPattern.MatchString(ascii)
}
