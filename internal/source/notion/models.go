package notion

import "time"

// Document is a page payload from the document store. Properties is the raw
// property bag keyed by field name, each value carrying a declared type tag.
type Document struct {
	ID             string              `json:"id"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	URL            string              `json:"url"`
	Properties     map[string]Property `json:"properties"`
}

// Property is one tagged value from the property bag. Exactly the member
// matching Type is populated; every other member is zero. Access goes through
// the typed accessors in props.go, which fail closed on a tag mismatch.
type Property struct {
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	People      []Person       `json:"people,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Relation    []Relation     `json:"relation,omitempty"`
}

type RichText struct {
	PlainText string `json:"plain_text"`
}

type SelectOption struct {
	Name string `json:"name"`
}

type Person struct {
	Name string `json:"name"`
}

type Relation struct {
	ID string `json:"id"`
}

// Block is one child entry of a page. Child-page blocks link to subpages.
type Block struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	HasChildren bool       `json:"has_children"`
	ChildPage   *ChildPage `json:"child_page,omitempty"`
}

type ChildPage struct {
	Title string `json:"title"`
}

// BlockList is one page of a children listing.
type BlockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Candidate is a traversed document together with what the traversal learned
// about it: whether it links to child pages (category nodes do, content
// documents do not).
type Candidate struct {
	Doc           *Document
	HasChildPages bool
}
