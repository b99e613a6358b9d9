package model

import "time"

// Prediction is the resolved classifier output for one upload.
type Prediction struct {
	LabelIndex int       `json:"label_index"`
	Label      string    `json:"label"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	Scores     []float32 `json:"scores,omitempty"`
}

// ClassificationEvent tells downstream filing which folder a document belongs in.
// It never carries the image or the report.
type ClassificationEvent struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	Label        string    `json:"label"`
	Category     string    `json:"category"`
	Confidence   float64   `json:"confidence"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// PredictionStats aggregates successful classifications per label.
type PredictionStats struct {
	Total  int64            `json:"total"`
	Labels map[string]int64 `json:"labels"`
}
