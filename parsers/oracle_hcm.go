package parsers

import (
	"strings"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
)

// DefaultOracleHCMPortalURL is the candidate experience site job links point at
const DefaultOracleHCMPortalURL = "https://iaayzv.fa.ocs.oraclecloud.com/hcmUI/CandidateExperience/en/sites/SIGA/job/"

var oracleHCMFields = []fieldMapping{
	{source: "Title", target: KeyTitle},
	{source: "Id", target: KeyGUID},
	{source: "PostedDate", target: KeyPubDate},
	{source: "ShortDescriptionStr", target: KeyDescription},
	{source: "PrimaryLocation", target: KeyLocation},
}

type oracleHCMPayload struct {
	Items []struct {
		RequisitionList []map[string]any `json:"requisitionList"`
	} `json:"items"`
}

// OracleHCM parses recruitingCEJobRequisitions responses
type OracleHCM struct {
	PortalURL string
}

// NewOracleHCM creates an Oracle HCM parser linking jobs under portalURL
func NewOracleHCM(portalURL string) OracleHCM {
	return OracleHCM{PortalURL: portalURL}
}

// Parse reads items[0].requisitionList; a missing list yields no items
func (p OracleHCM) Parse(raw string) []types.RawItem {
	var payload oracleHCMPayload
	if err := decodeJSON(raw, &payload); err != nil || len(payload.Items) == 0 {
		return []types.RawItem{}
	}

	requisitions := payload.Items[0].RequisitionList
	items := make([]types.RawItem, 0, len(requisitions))
	for _, requisition := range requisitions {
		item := types.RawItem{}
		applyMappings(item, requisition, oracleHCMFields)
		if item[KeyLocation] == "" {
			item[KeyLocation] = DefaultLocation
		}
		if id := item[KeyGUID]; id != "" {
			item[KeyLink] = strings.TrimSuffix(p.PortalURL, "/") + "/" + id
		}
		items = append(items, item)
	}
	return items
}
