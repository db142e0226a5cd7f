package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/tonglam/notion-syncer/internal/domain"
)

// Property names expected on content documents.
const (
	propTitle    = "Title"
	propCategory = "Category"
	propAuthor   = "Author"
	propContent  = "Content"
	propExcerpt  = "Excerpt"
	propParent   = "Parent"
)

// FetchPosts traverses the page tree from the configured root, keeps the
// documents that pass the content-validity gate, and maps them into the Post
// shape. Per-document failures are logged and reported in Skipped without
// aborting the pass; a failure reaching the root aborts.
func (s *Source) FetchPosts(ctx context.Context) (*domain.FetchResult, error) {
	candidates, err := s.traverse(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.FetchResult{}
	for _, c := range candidates {
		if !s.qualifies(c) {
			s.logger.Debug("document failed content gate", "document_id", c.Doc.ID)
			continue
		}

		post, err := s.mapDocument(c.Doc)
		if err != nil {
			s.logger.Warn("skipping document",
				"document_id", c.Doc.ID,
				"error", err,
			)
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", c.Doc.ID, err))
			continue
		}

		result.Posts = append(result.Posts, *post)
	}

	s.logger.Info("traversal complete",
		"candidates", len(candidates),
		"posts", len(result.Posts),
		"skipped", len(result.Skipped),
	)

	return result, nil
}

// traverse walks the tree breadth-first over child-page links. A visited set
// guards against cycles and duplicate links. Every non-root page is retrieved
// as a candidate; whether it has child pages of its own is recorded so the
// gate can exclude category nodes.
func (s *Source) traverse(ctx context.Context) ([]Candidate, error) {
	queue := []string{s.rootPageID}
	visited := map[string]bool{s.rootPageID: true}

	var candidates []Candidate
	for len(queue) > 0 {
		pageID := queue[0]
		queue = queue[1:]

		blocks, err := s.listAllChildren(ctx, pageID)
		if err != nil {
			if pageID == s.rootPageID {
				return nil, err
			}
			s.logger.Warn("failed to list children, skipping subtree",
				"document_id", pageID,
				"error", err,
			)
			continue
		}

		// Category detection must look at the raw block list: a page whose
		// child pages were all reached through another parent first still
		// has children.
		hasChildPages := false
		var childPages []string
		for _, b := range blocks {
			if b.Type != "child_page" {
				continue
			}
			hasChildPages = true
			if visited[b.ID] {
				continue
			}
			visited[b.ID] = true
			childPages = append(childPages, b.ID)
		}
		queue = append(queue, childPages...)

		if pageID == s.rootPageID {
			continue
		}

		doc, err := s.RetrieveDocument(ctx, pageID)
		if err != nil {
			s.logger.Warn("failed to retrieve document",
				"document_id", pageID,
				"error", err,
			)
			continue
		}

		candidates = append(candidates, Candidate{
			Doc:           doc,
			HasChildPages: hasChildPages,
		})
	}

	return candidates, nil
}

// qualifies is the content-validity gate: a non-empty title, a non-empty body
// reference or excerpt, and at least one parent relation. Category nodes
// (pages with child pages) never qualify.
func (s *Source) qualifies(c Candidate) bool {
	if c.HasChildPages {
		return false
	}
	d := c.Doc
	if !d.hasProp(propTitle, "title") {
		return false
	}
	if !d.hasProp(propContent, "rich_text") && !d.hasProp(propExcerpt, "rich_text") {
		return false
	}
	return d.hasProp(propParent, "relation")
}

// mapDocument extracts the required metadata with type validation. A mismatch
// fails that one document. Extended fields stay nil; enrichment fills them in
// its own pass.
func (s *Source) mapDocument(d *Document) (*domain.Post, error) {
	title, err := d.TitleProp(propTitle)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, domain.NewValidationError("document %s: empty title", d.ID)
	}

	category, err := d.SelectProp(propCategory)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return nil, domain.NewValidationError("document %s: empty category", d.ID)
	}

	people, err := d.PeopleProp(propAuthor)
	if err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return nil, domain.NewValidationError("document %s: no authors", d.ID)
	}

	return &domain.Post{
		ID:                 d.ID,
		Title:              title,
		Category:           category,
		Author:             strings.Join(people, ", "),
		SourceURL:          d.URL,
		SourceLastModified: d.LastEditedTime.UTC(),
	}, nil
}
