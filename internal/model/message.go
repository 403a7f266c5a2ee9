// internal/model/message.go
package model

// MessageEvent is one entry in a lead's message history. Time is the
// vendor's RFC3339 timestamp string; it is parsed at evaluation time so
// a bad timestamp only skips that lead.
type MessageEvent struct {
    Type string `json:"type"`
    Time string `json:"time"`
}
