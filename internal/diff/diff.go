// Package diff computes the minimal set of changed post fields between a
// freshly mapped remote document and the stored row. The whitelist below is
// the single source of truth for what counts as a change; columns outside it
// (id, created_at, updated_at, and the task-lifecycle columns image_task_id
// and error) are never diffed by reconciliation.
package diff

import (
	"github.com/tonglam/notion-syncer/internal/domain"
)

// Fields is the whitelist of comparable columns: the extended fields plus the
// metadata fields that can legitimately change upstream.
var Fields = []string{
	"title",
	"category",
	"author",
	"source_last_modified",
	"excerpt",
	"summary",
	"reading_minutes",
	"tags",
	"image_url",
	"hosted_image_url",
}

// Diff returns the patch that turns stored into remote, restricted to the
// whitelist. An empty patch means no write is needed.
func Diff(remote, stored *domain.Post) domain.Patch {
	patch := domain.Patch{}
	for _, field := range Fields {
		if fieldKey(remote, field) != fieldKey(stored, field) {
			patch[field] = fieldValue(remote, field)
		}
	}
	return patch
}

// fieldKey normalizes a field to a comparable scalar. Nullable fields map to
// an untyped nil so a nil pointer and a set pointer never compare equal.
func fieldKey(p *domain.Post, field string) any {
	switch field {
	case "title":
		return p.Title
	case "category":
		return p.Category
	case "author":
		return p.Author
	case "source_last_modified":
		return p.SourceLastModified.UTC().UnixNano()
	case "excerpt":
		return strKey(p.Excerpt)
	case "summary":
		return strKey(p.Summary)
	case "reading_minutes":
		return intKey(p.ReadingMinutes)
	case "tags":
		return strKey(p.Tags)
	case "image_url":
		return strKey(p.ImageURL)
	case "hosted_image_url":
		return strKey(p.HostedImageURL)
	}
	return nil
}

// fieldValue returns the patch value for a field: pointers for nullable
// columns so a nil writes NULL.
func fieldValue(p *domain.Post, field string) any {
	switch field {
	case "title":
		return p.Title
	case "category":
		return p.Category
	case "author":
		return p.Author
	case "source_last_modified":
		return p.SourceLastModified.UTC()
	case "excerpt":
		return p.Excerpt
	case "summary":
		return p.Summary
	case "reading_minutes":
		return p.ReadingMinutes
	case "tags":
		return p.Tags
	case "image_url":
		return p.ImageURL
	case "hosted_image_url":
		return p.HostedImageURL
	}
	return nil
}

func strKey(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func intKey(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
