package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// FindingSet is the normalized interchange document written between the
// normalizer and everything downstream.
type FindingSet struct {
	Organization Organization `json:"organization"`
	Findings     []Finding    `json:"findings"`
}

// NewFindingSet wraps findings, taking the organization from the first one.
func NewFindingSet(findings []Finding) FindingSet {
	set := FindingSet{
		Organization: UnknownOrganization(),
		Findings:     make([]Finding, len(findings)),
	}
	copy(set.Findings, findings)
	if len(findings) > 0 {
		set.Organization = findings[0].Organization
	}
	return set
}

// Encode writes the set as indented JSON.
func (s FindingSet) Encode(w io.Writer) error {
	if s.Findings == nil {
		s.Findings = []Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// DecodeFindingSet reads a set written by Encode or by another tool. Fields
// missing from the file get the normalizer defaults, and findings without an
// organization inherit the set's top-level one.
func DecodeFindingSet(r io.Reader) (FindingSet, error) {
	var s FindingSet
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return FindingSet{}, fmt.Errorf("decode finding set: %w", err)
	}
	if s.Findings == nil {
		s.Findings = []Finding{}
	}

	s.Organization = fillOrganization(s.Organization, UnknownOrganization())
	for i := range s.Findings {
		s.Findings[i] = fillDefaults(s.Findings[i], s.Organization)
	}
	return s, nil
}

func fillOrganization(org, from Organization) Organization {
	if strings.TrimSpace(org.Name) == "" {
		org.Name = from.Name
	}
	if strings.TrimSpace(org.Type) == "" {
		org.Type = from.Type
	}
	return org
}

func fillDefaults(f Finding, org Organization) Finding {
	for _, d := range []struct {
		field *string
		value string
	}{
		{&f.VulnID, DefaultVulnID},
		{&f.Title, DefaultTitle},
		{&f.Severity, DefaultSeverity},
		{&f.AffectedAsset, DefaultAsset},
		{&f.Evidence, DefaultEvidence},
		{&f.SourceFile, DefaultSource},
	} {
		if strings.TrimSpace(*d.field) == "" {
			*d.field = d.value
		}
	}
	f.Organization = fillOrganization(f.Organization, org)
	return f
}

// SaveSnapshot writes the set to path.
func (s FindingSet) SaveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSnapshot reads a set previously written with SaveSnapshot.
func LoadSnapshot(path string) (FindingSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return FindingSet{}, err
	}
	defer f.Close()
	return DecodeFindingSet(f)
}

// SnapshotDiff groups findings by how they changed against a baseline.
type SnapshotDiff struct {
	New       []Finding `json:"new"`
	Fixed     []Finding `json:"fixed"`
	Unchanged []Finding `json:"unchanged"`
}

func snapshotKey(f Finding) string {
	return f.VulnID + "|" + f.AffectedAsset
}

// CompareSnapshot diffs the set against a baseline. Findings match on
// vuln_id and affected asset; output keeps each side's order.
func (s FindingSet) CompareSnapshot(baseline FindingSet) SnapshotDiff {
	var diff SnapshotDiff

	inBaseline := make(map[string]bool, len(baseline.Findings))
	for _, f := range baseline.Findings {
		inBaseline[snapshotKey(f)] = true
	}
	inCurrent := make(map[string]bool, len(s.Findings))
	for _, f := range s.Findings {
		key := snapshotKey(f)
		if inCurrent[key] {
			continue
		}
		inCurrent[key] = true
		if inBaseline[key] {
			diff.Unchanged = append(diff.Unchanged, f)
		} else {
			diff.New = append(diff.New, f)
		}
	}

	seen := make(map[string]bool)
	for _, f := range baseline.Findings {
		key := snapshotKey(f)
		if inCurrent[key] || seen[key] {
			continue
		}
		seen[key] = true
		diff.Fixed = append(diff.Fixed, f)
	}
	return diff
}
