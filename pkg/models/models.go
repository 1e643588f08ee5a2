package models

import "time"

// DownloadLink is the archive URL resolved from the landing page.
type DownloadLink struct {
	PageURL  string `json:"pageUrl" bson:"pageUrl"`
	AnchorID string `json:"anchorId" bson:"anchorId"`
	Href     string `json:"href" bson:"href"`
	URL      string `json:"url" bson:"url"`
}

// Payload is the single archive member selected for loading.
type Payload struct {
	FileName string
	Content  []byte
}

// Size returns the payload length in bytes.
func (p *Payload) Size() int64 {
	if p == nil {
		return 0
	}
	return int64(len(p.Content))
}

type StagedKind string

const (
	StagedLocal  StagedKind = "local"
	StagedRemote StagedKind = "remote"
)

// StagedFile points at where the payload was persisted before loading.
// Path is set for local staging, Bucket/Key for object storage.
type StagedFile struct {
	Kind     StagedKind
	FileName string
	Path     string
	Bucket   string
	Key      string
	Size     int64
}

// Location renders the staged file as a path or s3:// URI.
func (s *StagedFile) Location() string {
	if s == nil {
		return ""
	}
	if s.Kind == StagedRemote {
		return "s3://" + s.Bucket + "/" + s.Key
	}
	return s.Path
}

// LoadResult is what a warehouse loader observed. Counts are -1 when not captured.
type LoadResult struct {
	Table           string
	InitialRowCount int64
	FinalRowCount   int64
	Message         string
}

// RowsAdded is the informational delta between final and initial counts.
func (r *LoadResult) RowsAdded() int64 {
	if r == nil || r.InitialRowCount < 0 || r.FinalRowCount < 0 {
		return 0
	}
	return r.FinalRowCount - r.InitialRowCount
}

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunReport summarises one pipeline run.
type RunReport struct {
	RunID        string        `bson:"runId"`
	Dataset      string        `bson:"dataset"`
	Strategy     string        `bson:"strategy"`
	Link         string        `bson:"link,omitempty"`
	PayloadName  string        `bson:"payloadName,omitempty"`
	PayloadBytes int64         `bson:"payloadBytes"`
	SourceRows   int64         `bson:"sourceRows"`
	Staged       string        `bson:"staged,omitempty"`
	Table        string        `bson:"table,omitempty"`
	InitialRows  int64         `bson:"initialRows"`
	FinalRows    int64         `bson:"finalRows"`
	Message      string        `bson:"message,omitempty"`
	Status       RunStatus     `bson:"status"`
	ErrorKind    string        `bson:"errorKind,omitempty"`
	Error        string        `bson:"error,omitempty"`
	StartedAt    time.Time     `bson:"startedAt"`
	FinishedAt   time.Time     `bson:"finishedAt"`
	Duration     time.Duration `bson:"durationNs"`
}

// RowsAdded mirrors LoadResult.RowsAdded for the report.
func (r *RunReport) RowsAdded() int64 {
	if r == nil || r.InitialRows < 0 || r.FinalRows < 0 {
		return 0
	}
	return r.FinalRows - r.InitialRows
}
