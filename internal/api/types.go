package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RangeInput is one range as submitted by the upload page.
type RangeInput struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Precise  bool   `json:"precise"`
	Subtitle string `json:"subtitle,omitempty"`
}

// SliceRequest is the POST /api/slice body. Video and Subs are paths on the
// server host.
type SliceRequest struct {
	Video         string       `json:"video"`
	Subs          string       `json:"subs"`
	OutputDir     string       `json:"output_dir,omitempty"`
	Ranges        []RangeInput `json:"ranges"`
	CheckDuration *bool        `json:"check_duration,omitempty"`
	UseHWAccel    *bool        `json:"use_hwaccel,omitempty"`
}

// SliceResponse reports the outcome of a batch.
type SliceResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Files     []string `json:"files"`
	OutputDir string   `json:"output_dir,omitempty"`
	RunID     string   `json:"run_id,omitempty"`
	Encoder   string   `json:"encoder,omitempty"`
	Log       []string `json:"log,omitempty"`
}

// ArtifactInfo is one produced clip pair.
type ArtifactInfo struct {
	Index        int    `json:"index"`
	Label        string `json:"label"`
	Precise      bool   `json:"precise"`
	VideoPath    string `json:"video_path"`
	SubtitlePath string `json:"subtitle_path"`
}

// RunSummary describes a recorded run.
type RunSummary struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Source       string         `json:"source"`
	StartedAt    string         `json:"started_at"`
	FinishedAt   string         `json:"finished_at,omitempty"`
	VideoPath    string         `json:"video_path"`
	SubtitlePath string         `json:"subtitle_path"`
	OutputDir    string         `json:"output_dir"`
	Encoder      string         `json:"encoder,omitempty"`
	RangeCount   int            `json:"range_count"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Artifacts    []ArtifactInfo `json:"artifacts,omitempty"`
}

// RunListResponse wraps recorded runs.
type RunListResponse struct {
	Runs []RunSummary `json:"runs"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// ServerStatus aggregates runtime information for API consumers.
type ServerStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	Busy          bool               `json:"busy"`
	Encoder       string             `json:"encoder"`
	OutputDir     string             `json:"output_dir"`
	HistoryDBPath string             `json:"history_db_path,omitempty"`
	LockFilePath  string             `json:"lock_file_path"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}
