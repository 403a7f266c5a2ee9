// internal/model/lead.go
package model

// LeadTask is one unit of evaluation work: a lead paired with the
// campaign it belongs to. Created by the expander, consumed exactly
// once by the evaluator.
type LeadTask struct {
    CampaignID int `json:"campaign_id"`
    LeadID     int `json:"lead_id"`
}
