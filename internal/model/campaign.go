// internal/model/campaign.go
package model

// Campaign is a vendor campaign as returned by GET /campaigns. Only
// campaigns with status "COMPLETED" are expanded into lead tasks.
type Campaign struct {
    ID     int    `json:"id"`
    Name   string `json:"name"`
    Status string `json:"status"`
}
