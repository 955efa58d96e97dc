package parsers

import (
	"net/url"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
)

const (
	// DefaultADPDeepLinkURL is the Workforce Now career center page requisitions open in
	DefaultADPDeepLinkURL = "https://workforcenow.adp.com/mascsr/default/mdf/recruitment/recruitment.html"
	// DefaultADPLocation is applied to every ADP posting; the export has no per-job location
	DefaultADPLocation = "Saskatoon, SK"
)

var adpFields = []fieldMapping{
	{source: "requisitionTitle", target: KeyTitle},
	{source: "itemID", target: KeyGUID},
	{source: "postDate", target: KeyPubDate},
}

type adpPayload struct {
	JobRequisitions []map[string]any `json:"jobRequisitions"`
}

// ADP parses ADP Workforce Now jobRequisitions exports
type ADP struct {
	DeepLinkURL string
	Location    string
}

// NewADP creates an ADP parser
func NewADP(deepLinkURL, location string) ADP {
	return ADP{DeepLinkURL: deepLinkURL, Location: location}
}

// Parse reads jobRequisitions; a missing list yields no items
func (p ADP) Parse(raw string) []types.RawItem {
	var payload adpPayload
	if err := decodeJSON(raw, &payload); err != nil {
		return []types.RawItem{}
	}

	items := make([]types.RawItem, 0, len(payload.JobRequisitions))
	for _, requisition := range payload.JobRequisitions {
		item := types.RawItem{}
		applyMappings(item, requisition, adpFields)
		item[KeyPubDate] = truncate(item[KeyPubDate], 10)
		item[KeyDescription] = ""
		item[KeyLocation] = p.Location
		if itemID := item[KeyGUID]; itemID != "" {
			item[KeyLink] = p.deepLink(stringify(requisition["clientRequisitionID"]), itemID)
		}
		items = append(items, item)
	}
	return items
}

func (p ADP) deepLink(clientRequisitionID, itemID string) string {
	query := url.Values{}
	query.Set("cid", clientRequisitionID)
	query.Set("jobId", itemID)
	query.Set("lang", "en_CA")
	query.Set("source", "CC2")
	return p.DeepLinkURL + "?" + query.Encode()
}

func truncate(value string, n int) string {
	runes := []rune(value)
	if len(runes) <= n {
		return value
	}
	return string(runes[:n])
}
