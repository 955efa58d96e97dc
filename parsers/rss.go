package parsers

import (
	"regexp"
	"strings"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/Nexora-Open-Source/job-feed-sync/utils"
)

var (
	blockPattern   = regexp.MustCompile(`(?is)<(?:item|job)>(.*?)</(?:item|job)>`)
	openTagPattern = regexp.MustCompile(`<(\w+)(?:\s[^>]*)?>`)
)

// rssAliases fills RSS-standard keys from vendor names when the standard key is absent.
// Order matters: the first alias that fills a key wins.
var rssAliases = []fieldMapping{
	{source: "url", target: KeyLink},
	{source: "referencenumber", target: KeyGUID},
	{source: "pubdate", target: KeyPubDate},
	{source: "date", target: KeyPubDate},
}

// locationParts are joined into a location when the item has none
var locationParts = []string{"city", "state", "country"}

// RSS parses <item> and <job> blocks from RSS 2.0 and vendor XML feeds
type RSS struct{}

// Parse extracts every <item>/<job> block, case-insensitively, as one RawItem
func (RSS) Parse(raw string) []types.RawItem {
	blocks := blockPattern.FindAllStringSubmatch(raw, -1)
	items := make([]types.RawItem, 0, len(blocks))
	for _, block := range blocks {
		item := extractFields(block[1])
		normalizeRSSItem(item)
		items = append(items, item)
	}
	return items
}

// extractFields reads every <tag>value</tag> pair in block, keyed by lower-cased tag name.
// Nested elements are consumed by their outermost tag.
func extractFields(block string) types.RawItem {
	item := types.RawItem{}
	pos := 0
	for pos < len(block) {
		loc := openTagPattern.FindStringSubmatchIndex(block[pos:])
		if loc == nil {
			break
		}
		name := block[pos+loc[2] : pos+loc[3]]
		valueStart := pos + loc[1]
		closing := "</" + name + ">"
		valueLen := strings.Index(block[valueStart:], closing)
		if valueLen < 0 {
			pos += loc[0] + 1
			continue
		}
		item[strings.ToLower(name)] = utils.StripCDATA(block[valueStart : valueStart+valueLen])
		pos = valueStart + valueLen + len(closing)
	}
	return item
}

func normalizeRSSItem(item types.RawItem) {
	for _, alias := range rssAliases {
		if item[alias.target] == "" && item[alias.source] != "" {
			item[alias.target] = item[alias.source]
		}
	}

	if item[KeyLocation] == "" {
		var parts []string
		for _, key := range locationParts {
			if value := item[key]; value != "" {
				parts = append(parts, value)
			}
		}
		if len(parts) > 0 {
			item[KeyLocation] = strings.Join(parts, ", ")
		}
	}
}
