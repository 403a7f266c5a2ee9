package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/unclebandit/leadsweeper-backend/internal/events"
	"github.com/unclebandit/leadsweeper-backend/internal/model"
	"github.com/unclebandit/leadsweeper-backend/internal/repository"
)

// SmartleadAPI is the slice of the vendor client the pipeline uses.
type SmartleadAPI interface {
	CompletedCampaigns(ctx context.Context) ([]model.Campaign, error)
	CompletedLeadIDs(ctx context.Context, campaignID int) ([]int, error)
	MessageHistory(ctx context.Context, campaignID, leadID int) ([]model.MessageEvent, error)
	DeleteLead(ctx context.Context, campaignID, leadID int) error
}

// Queue envelopes are explicit tagged values: either one unit of work
// or the shutdown signal, never a nil placeholder.
type campaignEnvelope struct {
	campaign model.Campaign
	shutdown bool
}

type leadEnvelope struct {
	task     model.LeadTask
	shutdown bool
}

// Pipeline expands completed campaigns into lead tasks and deletes the
// leads that never replied and went quiet past the grace period.
type Pipeline struct {
	API          SmartleadAPI
	Events       events.Publisher
	Audit        repository.DeletionRecorder // optional
	GracePeriod  time.Duration
	MaxCampaigns int // 0 means no cap
	QueueSize    int
	DryRun       bool
}

// Run executes one sweep: fetch campaigns, run both workers until the
// queues drain or ctx is cancelled, and return the tally. Cancellation
// is cooperative; an in-flight HTTP call finishes, the next loop
// iteration does not start.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if p.Events == nil {
		p.Events = events.NoopPublisher{}
	}
	if p.GracePeriod <= 0 {
		p.GracePeriod = 7 * 24 * time.Hour
	}
	queueSize := p.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	report := &Report{StartedAt: time.Now(), DryRun: p.DryRun}

	log.Println("Fetching completed campaigns")
	campaigns, err := p.API.CompletedCampaigns(ctx)
	if err != nil {
		log.Println("⚠️ Failed to fetch campaigns:", err)
		report.Errors++
		campaigns = nil
	}
	report.CampaignsFound = len(campaigns)
	if len(campaigns) == 0 {
		log.Println("No campaigns found")
		report.FinishedAt = time.Now()
		return report, ctx.Err()
	}

	campaignQueue := make(chan campaignEnvelope, queueSize)
	leadQueue := make(chan leadEnvelope, queueSize)
	tally := &counters{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.expandLoop(ctx, campaignQueue, leadQueue, tally)
	}()
	go func() {
		defer wg.Done()
		p.evaluateLoop(ctx, leadQueue, tally)
	}()

	queued := 0
enqueue:
	for _, campaign := range campaigns {
		if p.MaxCampaigns > 0 && queued >= p.MaxCampaigns {
			log.Printf("Campaign cap reached, leaving %d campaigns for the next sweep", len(campaigns)-queued)
			break
		}
		select {
		case campaignQueue <- campaignEnvelope{campaign: campaign}:
			queued++
		case <-ctx.Done():
			break enqueue
		}
	}

	// Signal completion to the expander. If it already exited on
	// cancellation the sentinel just sits in the buffered queue.
	select {
	case campaignQueue <- campaignEnvelope{shutdown: true}:
	case <-ctx.Done():
	}

	wg.Wait()

	report.fold(tally)
	report.FinishedAt = time.Now()
	log.Printf("✅ Sweep finished: %d campaigns expanded, %d leads evaluated, %d deleted, %d errors",
		report.CampaignsExpanded, report.LeadsEvaluated, report.LeadsDeleted, report.Errors)
	return report, ctx.Err()
}

// expandLoop drains the campaign queue, turning each completed campaign
// into lead tasks. A campaign that fails to expand yields zero leads
// and the loop moves on.
func (p *Pipeline) expandLoop(ctx context.Context, campaignQueue <-chan campaignEnvelope, leadQueue chan<- leadEnvelope, tally *counters) {
	// Hand the evaluator its shutdown signal on the way out, whether we
	// leave via sentinel or cancellation. A full queue is fine: the
	// evaluator is draining it, and on cancellation it exits on its own.
	defer func() {
		select {
		case leadQueue <- leadEnvelope{shutdown: true}:
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-campaignQueue:
			if env.shutdown {
				return
			}

			leadIDs, err := p.API.CompletedLeadIDs(ctx, env.campaign.ID)
			if err != nil {
				log.Printf("⚠️ Failed to expand campaign %d (%s): %v", env.campaign.ID, env.campaign.Name, err)
				tally.failure()
				continue
			}

			for _, leadID := range leadIDs {
				select {
				case leadQueue <- leadEnvelope{task: model.LeadTask{CampaignID: env.campaign.ID, LeadID: leadID}}:
				case <-ctx.Done():
					return
				}
			}
			tally.campaignExpanded(len(leadIDs))
		}
	}
}

// evaluateLoop drains the lead queue. One bad lead never aborts the
// batch: its error is counted and the loop continues.
func (p *Pipeline) evaluateLoop(ctx context.Context, leadQueue <-chan leadEnvelope, tally *counters) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-leadQueue:
			if env.shutdown {
				// Symmetric with the expander: the sentinel means
				// upstream is done, so exit rather than wait for
				// cancellation.
				return
			}
			if err := p.evaluate(ctx, env.task, tally); err != nil {
				log.Printf("⚠️ Failed to evaluate lead %d in campaign %d: %v", env.task.LeadID, env.task.CampaignID, err)
				tally.failure()
			}
			tally.leadEvaluated()
		}
	}
}

func (p *Pipeline) evaluate(ctx context.Context, task model.LeadTask, tally *counters) error {
	history, err := p.API.MessageHistory(ctx, task.CampaignID, task.LeadID)
	if err != nil {
		return err
	}

	// A lead with no events cannot be judged stale.
	if len(history) == 0 {
		tally.leadSkipped()
		return nil
	}

	for _, event := range history {
		if event.Type == "REPLY" {
			tally.leadSkipped()
			return nil
		}
	}

	last := history[len(history)-1]
	lastAt, err := time.Parse(time.RFC3339, last.Time)
	if err != nil {
		return fmt.Errorf("unparseable event time %q: %w", last.Time, err)
	}
	if time.Since(lastAt) <= p.GracePeriod {
		tally.leadSkipped()
		return nil
	}

	graceDays := int(p.GracePeriod.Hours() / 24)
	log.Printf("Lead %d has not replied and the last message was over %d days ago.", task.LeadID, graceDays)

	if p.DryRun {
		log.Printf("Dry run: would delete lead %d from campaign %d", task.LeadID, task.CampaignID)
		tally.leadDeleted()
		return nil
	}

	if err := p.API.DeleteLead(ctx, task.CampaignID, task.LeadID); err != nil {
		return err
	}
	log.Printf("Deleted lead %d from campaign %d", task.LeadID, task.CampaignID)
	tally.leadDeleted()

	if err := p.Events.LeadDeleted(task.CampaignID, task.LeadID); err != nil {
		log.Println("⚠️ Failed to publish deletion event:", err)
	}
	if p.Audit != nil {
		if err := p.Audit.RecordDeletion(task.CampaignID, task.LeadID, time.Now()); err != nil {
			log.Println("⚠️ Failed to record deletion in audit trail:", err)
		}
	}
	return nil
}
