package models

import "time"

// SystemKeyValue is one system-level configuration or state entry.
type SystemKeyValue struct {
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Version  int       `json:"version"`
	DateTime time.Time `json:"datetime"`
}
