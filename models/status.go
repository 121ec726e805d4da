package models

// Status phase labels shown to polling clients.
const (
	StatusNotStarted = "Not started"
	StatusRunning    = "Generating assets..."
	StatusCompleted  = "Assets generated successfully!"
	StatusFailed     = "Failed"
)

// GenerationStatus is the single current status value for one session's
// asset-generation run. A new write overwrites the previous value.
type GenerationStatus struct {
	Status          string `json:"status"`
	Completed       bool   `json:"completed"`
	Error           string `json:"error,omitempty"`
	ScenesCompleted int    `json:"scenes_completed"`
	TotalScenes     int    `json:"total_scenes"`
}

// NotStarted is the status reported for sessions with no run triggered yet.
func NotStarted() GenerationStatus {
	return GenerationStatus{Status: StatusNotStarted}
}
