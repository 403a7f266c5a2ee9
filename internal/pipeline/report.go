package pipeline

import (
	"sync"
	"time"
)

// Report summarizes one sweep. It is assembled when the run ends and is
// safe to serialize as-is.
type Report struct {
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	DryRun            bool      `json:"dry_run"`
	CampaignsFound    int       `json:"campaigns_found"`
	CampaignsExpanded int       `json:"campaigns_expanded"`
	LeadsQueued       int       `json:"leads_queued"`
	LeadsEvaluated    int       `json:"leads_evaluated"`
	LeadsDeleted      int       `json:"leads_deleted"`
	LeadsSkipped      int       `json:"leads_skipped"`
	Errors            int       `json:"errors"`
}

// counters is the workers' shared tally during a run; it is folded into
// the Report once both workers have exited.
type counters struct {
	mu                sync.Mutex
	campaignsExpanded int
	leadsQueued       int
	leadsEvaluated    int
	leadsDeleted      int
	leadsSkipped      int
	errors            int
}

func (c *counters) campaignExpanded(leads int) {
	c.mu.Lock()
	c.campaignsExpanded++
	c.leadsQueued += leads
	c.mu.Unlock()
}

func (c *counters) leadEvaluated() {
	c.mu.Lock()
	c.leadsEvaluated++
	c.mu.Unlock()
}

func (c *counters) leadDeleted() {
	c.mu.Lock()
	c.leadsDeleted++
	c.mu.Unlock()
}

func (c *counters) leadSkipped() {
	c.mu.Lock()
	c.leadsSkipped++
	c.mu.Unlock()
}

func (c *counters) failure() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

func (r *Report) fold(c *counters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r.CampaignsExpanded += c.campaignsExpanded
	r.LeadsQueued += c.leadsQueued
	r.LeadsEvaluated += c.leadsEvaluated
	r.LeadsDeleted += c.leadsDeleted
	r.LeadsSkipped += c.leadsSkipped
	r.Errors += c.errors
}
