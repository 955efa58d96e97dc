package parsers

import (
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/mmcdole/gofeed"
)

// Atom parses Atom (and RSS) documents with gofeed
type Atom struct{}

// Parse maps each gofeed item onto the RSS keys the normalizer reads
func (Atom) Parse(raw string) []types.RawItem {
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil || feed == nil {
		return []types.RawItem{}
	}

	items := make([]types.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		item := types.RawItem{
			KeyTitle:       entry.Title,
			KeyGUID:        entry.GUID,
			KeyLink:        entry.Link,
			KeyDescription: entry.Description,
			KeyContent:     entry.Content,
			KeyPubDate:     entry.Published,
		}
		if item[KeyPubDate] == "" {
			item[KeyPubDate] = entry.Updated
		}
		items = append(items, item)
	}
	return items
}
