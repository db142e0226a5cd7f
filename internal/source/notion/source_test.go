package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonglam/notion-syncer/internal/ratelimit"
)

// treeServer serves a fixed page tree: children lists under /blocks and page
// payloads under /pages.
func treeServer(t *testing.T, children map[string][]Block) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		switch {
		case strings.HasPrefix(r.URL.Path, "/blocks/"):
			_ = json.NewEncoder(w).Encode(BlockList{Results: children[parts[2]]})
		case strings.HasPrefix(r.URL.Path, "/pages/"):
			_ = json.NewEncoder(w).Encode(Document{ID: parts[2]})
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTreeSource(t *testing.T, baseURL string) *Source {
	t.Helper()
	limiter, err := ratelimit.New(100, 6000)
	require.NoError(t, err)

	return New(Config{
		BaseURL:     baseURL,
		RootPageID:  "root",
		PageSize:    100,
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
	}, limiter, newTestSource().logger)
}

func TestTraverse_SharedChildStillMarksParentAsCategory(t *testing.T) {
	// Both "a" and "b" link to the same child page "c". Whichever parent is
	// traversed second sees no unvisited children but is still a category
	// node, never a content document.
	children := map[string][]Block{
		"root": {
			{ID: "a", Type: "child_page"},
			{ID: "b", Type: "child_page"},
		},
		"a": {{ID: "c", Type: "child_page"}},
		"b": {{ID: "c", Type: "child_page"}},
		"c": {{ID: "x", Type: "paragraph"}},
	}

	srv := treeServer(t, children)
	defer srv.Close()

	candidates, err := newTreeSource(t, srv.URL).traverse(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	byID := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.Doc.ID] = c
	}

	assert.True(t, byID["a"].HasChildPages)
	assert.True(t, byID["b"].HasChildPages)
	assert.False(t, byID["c"].HasChildPages)
}

func TestTraverse_VisitsSharedChildOnce(t *testing.T) {
	children := map[string][]Block{
		"root": {
			{ID: "a", Type: "child_page"},
			{ID: "b", Type: "child_page"},
		},
		"a": {{ID: "c", Type: "child_page"}},
		"b": {{ID: "c", Type: "child_page"}},
		"c": nil,
	}

	srv := treeServer(t, children)
	defer srv.Close()

	candidates, err := newTreeSource(t, srv.URL).traverse(context.Background())
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, c := range candidates {
		seen[c.Doc.ID]++
	}
	assert.Equal(t, 1, seen["c"])
}
