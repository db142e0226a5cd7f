package notion

import (
	"strings"

	"github.com/tonglam/notion-syncer/internal/domain"
)

// Typed property accessors. Each one requires the property to exist with the
// expected type tag and fails closed with a ValidationError otherwise; there
// is no silent defaulting for required fields.

func (d *Document) TitleProp(name string) (string, error) {
	p, err := d.prop(name, "title")
	if err != nil {
		return "", err
	}
	return joinRichText(p.Title), nil
}

func (d *Document) RichTextProp(name string) (string, error) {
	p, err := d.prop(name, "rich_text")
	if err != nil {
		return "", err
	}
	return joinRichText(p.RichText), nil
}

func (d *Document) SelectProp(name string) (string, error) {
	p, err := d.prop(name, "select")
	if err != nil {
		return "", err
	}
	if p.Select == nil {
		return "", nil
	}
	return p.Select.Name, nil
}

func (d *Document) MultiSelectProp(name string) ([]string, error) {
	p, err := d.prop(name, "multi_select")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(p.MultiSelect))
	for _, o := range p.MultiSelect {
		names = append(names, o.Name)
	}
	return names, nil
}

func (d *Document) PeopleProp(name string) ([]string, error) {
	p, err := d.prop(name, "people")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(p.People))
	for _, person := range p.People {
		names = append(names, person.Name)
	}
	return names, nil
}

func (d *Document) NumberProp(name string) (*float64, error) {
	p, err := d.prop(name, "number")
	if err != nil {
		return nil, err
	}
	return p.Number, nil
}

func (d *Document) URLProp(name string) (string, error) {
	p, err := d.prop(name, "url")
	if err != nil {
		return "", err
	}
	if p.URL == nil {
		return "", nil
	}
	return *p.URL, nil
}

func (d *Document) RelationIDs(name string) ([]string, error) {
	p, err := d.prop(name, "relation")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(p.Relation))
	for _, r := range p.Relation {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (d *Document) prop(name, wantType string) (*Property, error) {
	p, ok := d.Properties[name]
	if !ok {
		return nil, domain.NewValidationError("document %s: missing property %q", d.ID, name)
	}
	if p.Type != wantType {
		return nil, domain.NewValidationError(
			"document %s: property %q has type %q, want %q", d.ID, name, p.Type, wantType)
	}
	return &p, nil
}

// hasProp reports whether a property exists with the expected type and a
// non-empty value. Used by the content-validity gate, which treats anything
// malformed as absent; hard validation happens during mapping.
func (d *Document) hasProp(name, wantType string) bool {
	p, ok := d.Properties[name]
	if !ok || p.Type != wantType {
		return false
	}
	switch wantType {
	case "title":
		return joinRichText(p.Title) != ""
	case "rich_text":
		return joinRichText(p.RichText) != ""
	case "select":
		return p.Select != nil && p.Select.Name != ""
	case "relation":
		return len(p.Relation) > 0
	}
	return false
}

func joinRichText(parts []RichText) string {
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part.PlainText)
	}
	return strings.TrimSpace(sb.String())
}
