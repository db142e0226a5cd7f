package domain

import "time"

// Post is the persisted mirror of a remote content document. The id comes
// from the document store and never changes. Extended fields are nullable:
// nil means "not yet enriched".
type Post struct {
	ID                 string    `db:"id" json:"id"`
	Title              string    `db:"title" json:"title"`
	Category           string    `db:"category" json:"category"`
	Author             string    `db:"author" json:"author"`
	SourceURL          string    `db:"source_url" json:"source_url"`
	SourceLastModified time.Time `db:"source_last_modified" json:"source_last_modified"`
	Excerpt            *string   `db:"excerpt" json:"excerpt"`
	Summary            *string   `db:"summary" json:"summary"`
	ReadingMinutes     *int      `db:"reading_minutes" json:"reading_minutes"`
	Tags               *string   `db:"tags" json:"tags"`
	ImageURL           *string   `db:"image_url" json:"image_url"`
	HostedImageURL     *string   `db:"hosted_image_url" json:"hosted_image_url"`
	ImageTaskID        *string   `db:"image_task_id" json:"image_task_id"`
	Error              *string   `db:"error" json:"error"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Patch is a partial set of post columns for an update. Keys are column
// names; a nil value writes NULL.
type Patch map[string]any

// TaskStatus is the provider-side state of an asynchronous image task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// TaskResult is one status poll of an image-generation task.
type TaskResult struct {
	Status   TaskStatus
	ImageURL string
	Error    string
}

// FetchResult is the outcome of a remote tree traversal: the documents that
// passed the content-validity gate mapped into Post shape, plus one entry per
// document that was skipped with the reason.
type FetchResult struct {
	Posts   []Post
	Skipped []string
}
