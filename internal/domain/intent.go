package domain

// IntentKind discriminates change intents.
type IntentKind string

const (
	IntentInsert IntentKind = "insert"
	IntentUpdate IntentKind = "update"
	IntentDelete IntentKind = "delete"
)

// ChangeIntent is a single pending write produced by a reconciliation or
// collection pass and consumed by the batched writer. Intents are transient;
// they live only within one pass.
type ChangeIntent struct {
	Kind  IntentKind
	Post  *Post  // inserts
	ID    string // updates and deletes
	Patch Patch  // updates
}

func InsertIntent(post *Post) ChangeIntent {
	return ChangeIntent{Kind: IntentInsert, Post: post, ID: post.ID}
}

func UpdateIntent(id string, patch Patch) ChangeIntent {
	return ChangeIntent{Kind: IntentUpdate, ID: id, Patch: patch}
}

func DeleteIntent(id string) ChangeIntent {
	return ChangeIntent{Kind: IntentDelete, ID: id}
}
