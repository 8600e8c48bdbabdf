package entity

import "time"

// WorkItem is one logged-time record of an issue.
type WorkItem struct {
	ID         string `json:"id" yaml:"id"`
	AuthorName string `json:"authorName,omitempty" yaml:"authorName,omitempty"`
	AuthorURL  string `json:"authorUrl,omitempty" yaml:"authorUrl,omitempty"`
	Comment    string `json:"comment,omitempty" yaml:"comment,omitempty"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	// Duration in minutes.
	Duration int `json:"duration" yaml:"duration"`
	// Date in epoch milliseconds.
	Date int64  `json:"date" yaml:"date"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

func (w WorkItem) Time() time.Time {
	return time.UnixMilli(w.Date)
}
