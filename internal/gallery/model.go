package gallery

import "time"

// FileRecord is the metadata row kept for each distinct stored object.
// Exactly one record exists per identifier; its lifetime is tied 1:1 to the
// presence of the original blob (blob write precedes record write, record
// delete precedes blob delete).
type FileRecord struct {
	Identifier  string    `json:"identifier"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// SortField selects the column used to order file listings.
type SortField string

const (
	SortByUploadedAt SortField = "uploaded_at"
	SortBySize       SortField = "size"
)

// SortOrder selects ascending or descending listing order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Listing pagination bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListOptions filters, sorts, and paginates file listings.
// Zero values fall back to defaults: limit 20, newest first.
type ListOptions struct {
	Limit    int
	Offset   int
	SortBy   SortField
	Sort     SortOrder
	MimeType string // substring match against mime_type
	Search   string // substring match against title or description
}

// Normalize clamps pagination and fills default sort settings.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.SortBy != SortBySize {
		o.SortBy = SortByUploadedAt
	}
	if o.Sort != SortAsc {
		o.Sort = SortDesc
	}
	return o
}

// CompletedPart identifies one uploaded part of a multipart session.
type CompletedPart struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// Multipart part numbers are constrained to the S3 domain.
const (
	MinPartNumber = 1
	MaxPartNumber = 10000
)

// UploadResult is the outcome of a finished upload, single-shot or multipart.
// Existed is true when the content deduplicated against a prior upload, in
// which case Record is the first writer's record.
type UploadResult struct {
	Record  FileRecord
	Existed bool
}

// MultipartSession is the handle returned when a multipart upload opens.
// The SessionID is assigned by the blob store and is opaque to callers.
type MultipartSession struct {
	SessionID string `json:"upload_id"`
	Key       string `json:"key"`
}
