package engine

// Defaults applied by the normalizer when a source record lacks a field.
const (
	DefaultVulnID   = "UNKNOWN"
	DefaultTitle    = "No title"
	DefaultSeverity = "Unknown"
	DefaultAsset    = "Unknown"
	DefaultEvidence = "No evidence provided"
	DefaultOrgField = "Unknown"
	DefaultSource   = "Unknown"
)

// Organization identifies who a scan belongs to.
type Organization struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// UnknownOrganization is used when a document carries no organization info.
func UnknownOrganization() Organization {
	return Organization{Name: DefaultOrgField, Type: DefaultOrgField}
}

// Finding represents a normalized vulnerability record from any scan export.
// Every field is populated by the normalizer; downstream stages never see blanks.
type Finding struct {
	VulnID        string       `json:"vuln_id"`
	Title         string       `json:"title"`
	Severity      string       `json:"severity"`
	BaseScore     float64      `json:"base_score"`
	AffectedAsset string       `json:"affected_asset"`
	Evidence      string       `json:"evidence"`
	SourceFile    string       `json:"source_file"`
	Organization  Organization `json:"organization"`
}
