package notion

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonglam/notion-syncer/internal/domain"
)

func testDoc() *Document {
	return &Document{
		ID:             "doc-1",
		LastEditedTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		URL:            "https://notion.so/doc-1",
		Properties: map[string]Property{
			"Title":    {Type: "title", Title: []RichText{{PlainText: "Hello "}, {PlainText: "World"}}},
			"Category": {Type: "select", Select: &SelectOption{Name: "engineering"}},
			"Author":   {Type: "people", People: []Person{{Name: "Jo"}, {Name: "Sam"}}},
			"Content":  {Type: "rich_text", RichText: []RichText{{PlainText: "body ref"}}},
			"Parent":   {Type: "relation", Relation: []Relation{{ID: "parent-1"}}},
			"Views":    {Type: "number", Number: ptrFloat(42)},
		},
	}
}

func ptrFloat(f float64) *float64 { return &f }

func TestTitleProp_JoinsRichText(t *testing.T) {
	got, err := testDoc().TitleProp("Title")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", got)
}

func TestProps_MissingPropertyFailsClosed(t *testing.T) {
	var vErr *domain.ValidationError

	_, err := testDoc().TitleProp("Nope")
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)
}

func TestProps_TypeMismatchFailsClosed(t *testing.T) {
	var vErr *domain.ValidationError

	// "Category" is a select, not a title.
	_, err := testDoc().TitleProp("Category")
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)

	_, err = testDoc().PeopleProp("Views")
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)
}

func TestSelectProp_EmptyValueIsNotAnError(t *testing.T) {
	doc := testDoc()
	doc.Properties["Status"] = Property{Type: "select"}

	got, err := doc.SelectProp("Status")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestRelationIDs(t *testing.T) {
	ids, err := testDoc().RelationIDs("Parent")
	require.NoError(t, err)
	assert.Equal(t, []string{"parent-1"}, ids)
}

func newTestSource() *Source {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return &Source{logger: logger}
}

func TestQualifies(t *testing.T) {
	s := newTestSource()

	assert.True(t, s.qualifies(Candidate{Doc: testDoc()}))

	// Category nodes are excluded even when otherwise valid.
	assert.False(t, s.qualifies(Candidate{Doc: testDoc(), HasChildPages: true}))

	noTitle := testDoc()
	noTitle.Properties["Title"] = Property{Type: "title"}
	assert.False(t, s.qualifies(Candidate{Doc: noTitle}))

	noParent := testDoc()
	delete(noParent.Properties, "Parent")
	assert.False(t, s.qualifies(Candidate{Doc: noParent}))

	// No body reference, but an excerpt still qualifies.
	noContent := testDoc()
	delete(noContent.Properties, "Content")
	assert.False(t, s.qualifies(Candidate{Doc: noContent}))
	noContent.Properties["Excerpt"] = Property{Type: "rich_text", RichText: []RichText{{PlainText: "teaser"}}}
	assert.True(t, s.qualifies(Candidate{Doc: noContent}))
}

func TestMapDocument(t *testing.T) {
	s := newTestSource()

	post, err := s.mapDocument(testDoc())
	require.NoError(t, err)

	assert.Equal(t, "doc-1", post.ID)
	assert.Equal(t, "Hello World", post.Title)
	assert.Equal(t, "engineering", post.Category)
	assert.Equal(t, "Jo, Sam", post.Author)
	assert.Equal(t, "https://notion.so/doc-1", post.SourceURL)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), post.SourceLastModified)

	// Extended fields are never populated by mapping.
	assert.Nil(t, post.Excerpt)
	assert.Nil(t, post.Summary)
	assert.Nil(t, post.Tags)
	assert.Nil(t, post.ImageTaskID)
}

func TestMapDocument_TypeMismatchIsValidationError(t *testing.T) {
	s := newTestSource()
	var vErr *domain.ValidationError

	doc := testDoc()
	doc.Properties["Category"] = Property{Type: "rich_text", RichText: []RichText{{PlainText: "oops"}}}

	_, err := s.mapDocument(doc)
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)
}
