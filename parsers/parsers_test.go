package parsers

import (
	"testing"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	tests := []struct {
		name     string
		feedType types.FeedType
		expected Parser
	}{
		{"rss", types.FeedTypeRSS, RSS{}},
		{"oracle hcm", types.FeedTypeOracleHCM, NewOracleHCM(DefaultOracleHCMPortalURL)},
		{"adp", types.FeedTypeADP, NewADP(DefaultADPDeepLinkURL, DefaultADPLocation)},
		{"atom", types.FeedTypeAtom, Atom{}},
		{"upper case", "ADP", NewADP(DefaultADPDeepLinkURL, DefaultADPLocation)},
		{"unset falls back to rss", "", RSS{}},
		{"unknown falls back to rss", "smartjobboard", RSS{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, For(tt.feedType))
		})
	}
}

func TestRSSParse_JobBlocks(t *testing.T) {
	raw := `<?xml version="1.0"?>
<source>
  <JOB>
    <title><![CDATA[ Registered Nurse ]]></title>
    <referencenumber>123</referencenumber>
    <url>https://jobs.example.com/123</url>
    <date>2024-03-05</date>
    <city>Saskatoon</city>
    <state>SK</state>
    <country>Canada</country>
    <description><![CDATA[<p>Day shifts</p>]]></description>
  </JOB>
  <job>
    <title>Cook</title>
    <link>https://jobs.example.com/cook</link>
    <url>https://jobs.example.com/other</url>
    <guid>cook-1</guid>
    <referencenumber>ignored</referencenumber>
  </job>
</source>`

	items := RSS{}.Parse(raw)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "Registered Nurse", first[KeyTitle])
	assert.Equal(t, "123", first[KeyGUID])
	assert.Equal(t, "https://jobs.example.com/123", first[KeyLink])
	assert.Equal(t, "2024-03-05", first[KeyPubDate])
	assert.Equal(t, "Saskatoon, SK, Canada", first[KeyLocation])
	assert.Equal(t, "<p>Day shifts</p>", first[KeyDescription])

	second := items[1]
	assert.Equal(t, "https://jobs.example.com/cook", second[KeyLink])
	assert.Equal(t, "cook-1", second[KeyGUID])
	assert.Empty(t, second[KeyLocation])
}

func TestRSSParse_StandardRSS(t *testing.T) {
	raw := `<rss version="2.0"><channel>
<title>Jobs</title>
<item>
  <title>Librarian</title>
  <link>https://example.com/librarian</link>
  <guid isPermaLink="false">t-1</guid>
  <pubDate>Tue, 05 Mar 2024 08:00:00 -0600</pubDate>
  <category>Education</category>
</item>
</channel></rss>`

	items := RSS{}.Parse(raw)
	require.Len(t, items, 1)
	assert.Equal(t, "Librarian", items[0][KeyTitle])
	assert.Equal(t, "t-1", items[0][KeyGUID])
	assert.Equal(t, "Tue, 05 Mar 2024 08:00:00 -0600", items[0][KeyPubDate])
	assert.Equal(t, "Education", items[0]["category"])
}

func TestRSSParse_LocationParts(t *testing.T) {
	tests := []struct {
		name     string
		fields   string
		expected string
	}{
		{"city and state", "<city>Regina</city><state>SK</state>", "Regina, SK"},
		{"state only", "<state>AB</state>", "AB"},
		{"country only", "<country>Canada</country>", "Canada"},
		{"explicit location wins", "<location>Remote</location><city>Regina</city>", "Remote"},
		{"none", "<title>x</title>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := RSS{}.Parse("<item>" + tt.fields + "</item>")
			require.Len(t, items, 1)
			assert.Equal(t, tt.expected, items[0][KeyLocation])
		})
	}
}

func TestRSSParse_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"not xml at all",
		"<item><title>unterminated",
		`{"items": []}`,
	}

	for _, raw := range inputs {
		items := RSS{}.Parse(raw)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	}
}

func TestRSSParse_UnclosedFieldSkipped(t *testing.T) {
	items := RSS{}.Parse(`<item><br/><img src="x"><title>Welder</title></item>`)
	require.Len(t, items, 1)
	assert.Equal(t, "Welder", items[0][KeyTitle])
	assert.NotContains(t, items[0], "img")
}

func TestOracleHCMParse(t *testing.T) {
	raw := `{"items":[{"requisitionList":[{"Id":"55","Title":"Nurse","PrimaryLocation":"Saskatoon, SK"}]}]}`

	items := NewOracleHCM(DefaultOracleHCMPortalURL).Parse(raw)
	require.Len(t, items, 1)
	assert.Equal(t, "55", items[0][KeyGUID])
	assert.Equal(t, "Nurse", items[0][KeyTitle])
	assert.Equal(t, "Saskatoon, SK", items[0][KeyLocation])
	assert.Contains(t, items[0][KeyLink], "/job/55")
	assert.Contains(t, items[0][KeyLink], "/hcmUI/CandidateExperience/en/sites/SIGA/job/")
}

func TestOracleHCMParse_Defaults(t *testing.T) {
	raw := `{"items":[{"requisitionList":[
		{"Id":1024,"Title":"Clerk","PostedDate":"2024-02-01","ShortDescriptionStr":"Front desk"},
		{"Title":"No id"}
	]}]}`

	items := NewOracleHCM("https://hcm.example.com/job").Parse(raw)
	require.Len(t, items, 2)
	assert.Equal(t, "1024", items[0][KeyGUID])
	assert.Equal(t, "https://hcm.example.com/job/1024", items[0][KeyLink])
	assert.Equal(t, DefaultLocation, items[0][KeyLocation])
	assert.Equal(t, "2024-02-01", items[0][KeyPubDate])
	assert.Equal(t, "Front desk", items[0][KeyDescription])

	assert.Empty(t, items[1][KeyGUID])
	assert.Empty(t, items[1][KeyLink])
}

func TestOracleHCMParse_Empty(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"items":[]}`,
		`{"items":[{}]}`,
		`{"items":"nope"}`,
		`<rss></rss>`,
		``,
	}

	parser := NewOracleHCM(DefaultOracleHCMPortalURL)
	for _, raw := range inputs {
		items := parser.Parse(raw)
		assert.NotNil(t, items, raw)
		assert.Empty(t, items, raw)
	}
}

func TestADPParse(t *testing.T) {
	raw := `{"jobRequisitions":[{"itemID":"9","requisitionTitle":"Cook","clientRequisitionID":"abc"}]}`

	items := NewADP(DefaultADPDeepLinkURL, DefaultADPLocation).Parse(raw)
	require.Len(t, items, 1)
	assert.Equal(t, "9", items[0][KeyGUID])
	assert.Equal(t, "Cook", items[0][KeyTitle])
	assert.Equal(t, "Saskatoon, SK", items[0][KeyLocation])
	assert.Contains(t, items[0][KeyLink], "cid=abc")
	assert.Contains(t, items[0][KeyLink], "jobId=9")
	assert.Contains(t, items[0][KeyLink], "lang=en_CA")
}

func TestADPParse_PostDateTruncated(t *testing.T) {
	raw := `{"jobRequisitions":[{"itemID":"1","postDate":"2024-04-18T13:45:00.000Z"},{"itemID":"2","postDate":"2024"}]}`

	items := NewADP(DefaultADPDeepLinkURL, DefaultADPLocation).Parse(raw)
	require.Len(t, items, 2)
	assert.Equal(t, "2024-04-18", items[0][KeyPubDate])
	assert.Equal(t, "2024", items[1][KeyPubDate])
}

func TestADPParse_Empty(t *testing.T) {
	parser := NewADP(DefaultADPDeepLinkURL, DefaultADPLocation)
	for _, raw := range []string{`{}`, `{"jobRequisitions":[]}`, `[1,2]`, `garbage`} {
		items := parser.Parse(raw)
		assert.NotNil(t, items, raw)
		assert.Empty(t, items, raw)
	}
}

func TestAtomParse(t *testing.T) {
	raw := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Careers</title>
  <id>urn:careers</id>
  <updated>2024-05-01T00:00:00Z</updated>
  <entry>
    <title>Electrician</title>
    <id>urn:job:77</id>
    <link href="https://careers.example.com/77"/>
    <updated>2024-05-01T12:00:00Z</updated>
    <summary>Journeyman ticket required</summary>
  </entry>
</feed>`

	items := Atom{}.Parse(raw)
	require.Len(t, items, 1)
	assert.Equal(t, "Electrician", items[0][KeyTitle])
	assert.Equal(t, "urn:job:77", items[0][KeyGUID])
	assert.Equal(t, "https://careers.example.com/77", items[0][KeyLink])
	assert.Equal(t, "Journeyman ticket required", items[0][KeyDescription])
	assert.Equal(t, "2024-05-01T12:00:00Z", items[0][KeyPubDate])
}

func TestAtomParse_Malformed(t *testing.T) {
	items := Atom{}.Parse("definitely not a feed")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFormatEquivalence(t *testing.T) {
	inputs := map[types.FeedType]string{
		types.FeedTypeRSS:       `<job><title>Cook</title><referencenumber>9</referencenumber></job>`,
		types.FeedTypeOracleHCM: `{"items":[{"requisitionList":[{"Id":"9","Title":"Cook"}]}]}`,
		types.FeedTypeADP:       `{"jobRequisitions":[{"itemID":"9","requisitionTitle":"Cook","clientRequisitionID":"c"}]}`,
	}

	for feedType, raw := range inputs {
		t.Run(string(feedType), func(t *testing.T) {
			items := For(feedType).Parse(raw)
			require.Len(t, items, 1)
			assert.Equal(t, "Cook", items[0][KeyTitle])
			assert.Equal(t, "9", items[0].First(KeyGUID, KeyID, KeyLink, KeyURL))
		})
	}
}
