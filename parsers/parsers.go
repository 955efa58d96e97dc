/*
Package parsers converts raw feed payloads into loosely-typed items.

Every format is a Parser variant selected by the feed's declared type:
  - RSS: generic XML/RSS and SmartJobBoard style <job> documents (the default)
  - OracleHCM: Oracle HCM Cloud requisition JSON
  - ADP: ADP Workforce Now requisition JSON
  - Atom: Atom and RSS documents read through gofeed

Parsers are total. Malformed input produces an empty slice, never an error or panic,
so an unreadable payload surfaces as a feed with zero items.
*/
package parsers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
)

// Canonical RawItem keys read by the normalizer
const (
	KeyTitle       = "title"
	KeyDescription = "description"
	KeySummary     = "summary"
	KeyContent     = "content"
	KeyGUID        = "guid"
	KeyID          = "id"
	KeyLink        = "link"
	KeyURL         = "url"
	KeyPubDate     = "pubDate"
	KeyLocation    = "location"
)

// DefaultLocation is used when a format carries no location for a posting
const DefaultLocation = "Canada"

// Parser turns a raw payload into items. Implementations never fail.
type Parser interface {
	Parse(raw string) []types.RawItem
}

var registry = map[types.FeedType]Parser{
	types.FeedTypeRSS:       RSS{},
	types.FeedTypeOracleHCM: NewOracleHCM(DefaultOracleHCMPortalURL),
	types.FeedTypeADP:       NewADP(DefaultADPDeepLinkURL, DefaultADPLocation),
	types.FeedTypeAtom:      Atom{},
}

// For returns the parser registered for feedType, falling back to RSS
// when the type is unset or unrecognized.
func For(feedType types.FeedType) Parser {
	if parser, ok := registry[types.FeedType(strings.ToLower(string(feedType)))]; ok {
		return parser
	}
	return RSS{}
}

// fieldMapping copies one source field onto a canonical RawItem key
type fieldMapping struct {
	source string
	target string
}

// applyMappings copies mapped fields from a decoded JSON object into item
func applyMappings(item types.RawItem, record map[string]any, mappings []fieldMapping) {
	for _, m := range mappings {
		item[m.target] = stringify(record[m.source])
	}
}

// stringify renders a decoded JSON scalar the way it appeared in the payload
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// decodeJSON decodes raw into dst keeping numbers verbatim
func decodeJSON(raw string, dst any) error {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	return decoder.Decode(dst)
}
