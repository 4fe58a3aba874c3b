package normalize

import (
	"github.com/user/riskscope/pkg/engine"
)

// containerNames are the accepted names of a findings collection, in priority order.
var containerNames = []string{"vulnerabilities", "findings", "issues", "results"}

// recordNames are element names that mark a single finding in XML.
var recordNames = []string{"vulnerability", "finding", "issue", "result"}

type shapeKind int

const (
	// shapeEmpty: a valid document with no findings collection.
	shapeEmpty shapeKind = iota
	// shapeContainer: records live under one of containerNames.
	shapeContainer
	// shapeBareList: the document root is itself the list of records.
	shapeBareList
	// shapeScattered: XML records found by element name anywhere in the tree.
	shapeScattered
)

func (k shapeKind) String() string {
	switch k {
	case shapeContainer:
		return "container"
	case shapeBareList:
		return "bare-list"
	case shapeScattered:
		return "scattered"
	default:
		return "empty"
	}
}

// record is one raw finding, whatever the source format.
type record interface {
	// field returns the trimmed, non-empty scalar stored under name.
	field(name string) (string, bool)
	// check reports a record too malformed to extract anything from.
	check() error
}

// shape is a document resolved once into its organization and raw records.
type shape struct {
	kind    shapeKind
	org     engine.Organization
	records []record
}

// fieldSource is anything organization fields can be read from.
type fieldSource interface {
	field(name string) (string, bool)
}

func orgFrom(src fieldSource, nameKey, typeKey string) engine.Organization {
	org := engine.UnknownOrganization()
	if v, ok := src.field(nameKey); ok {
		org.Name = v
	}
	if v, ok := src.field(typeKey); ok {
		org.Type = v
	}
	return org
}

func resolveJSONShape(root any) (shape, error) {
	switch t := root.(type) {
	case []any:
		return shape{kind: shapeBareList, org: engine.UnknownOrganization(), records: jsonRecords(t)}, nil

	case map[string]any:
		s := shape{kind: shapeEmpty, org: jsonOrganization(t)}
		for _, name := range containerNames {
			items, ok := t[name].([]any)
			if !ok || len(items) == 0 {
				continue
			}
			s.kind = shapeContainer
			s.records = jsonRecords(items)
			break
		}
		return s, nil

	default:
		return shape{}, ErrUnexpectedRoot
	}
}

func jsonOrganization(root map[string]any) engine.Organization {
	if obj, ok := root["organization"].(map[string]any); ok && len(obj) > 0 {
		return orgFrom(jsonRecord{obj: obj}, "name", "type")
	}
	return orgFrom(jsonRecord{obj: root}, "org_name", "org_type")
}

func jsonRecords(items []any) []record {
	out := make([]record, len(items))
	for i, item := range items {
		out[i] = newJSONRecord(item)
	}
	return out
}

func resolveXMLShape(root *xmlNode) shape {
	s := shape{kind: shapeEmpty, org: xmlOrganization(root)}

	for _, name := range containerNames {
		container := root.find(name)
		if container == nil || len(container.children) == 0 {
			continue
		}
		s.kind = shapeContainer
		if container == root {
			s.kind = shapeBareList
		}
		s.records = xmlRecords(containerItems(container))
		return s
	}

	for _, name := range recordNames {
		if nodes := root.findAll(name); len(nodes) > 0 {
			s.kind = shapeScattered
			s.records = xmlRecords(nodes)
			return s
		}
	}
	return s
}

// containerItems prefers children with a record name, so a container that
// also holds summary elements yields only its records.
func containerItems(container *xmlNode) []*xmlNode {
	var named []*xmlNode
	for _, c := range container.children {
		for _, rn := range recordNames {
			if c.name == rn {
				named = append(named, c)
				break
			}
		}
	}
	if len(named) > 0 {
		return named
	}
	return container.children
}

func xmlOrganization(root *xmlNode) engine.Organization {
	if org := root.find("organization"); org != nil {
		return orgFrom(xmlRecord{node: org}, "name", "type")
	}
	return orgFrom(xmlRecord{node: root}, "org_name", "org_type")
}

func xmlRecords(nodes []*xmlNode) []record {
	out := make([]record, len(nodes))
	for i, n := range nodes {
		out[i] = xmlRecord{node: n}
	}
	return out
}
