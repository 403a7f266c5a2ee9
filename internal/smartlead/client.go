package smartlead

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	appErrors "github.com/unclebandit/leadsweeper-backend/internal/errors"
	"github.com/unclebandit/leadsweeper-backend/internal/model"
	"github.com/unclebandit/leadsweeper-backend/internal/ratelimit"
)

// Client talks to the SmartLead REST API. Every request, GET and DELETE
// alike, passes through the shared rate limiter before it is issued.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
}

func NewClient(baseURL, apiKey string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetQueryParam("api_key", apiKey),
		limiter: limiter,
	}
}

func (c *Client) get(ctx context.Context, url string) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, appErrors.NewAPIRequestFailed("GET", url, res.StatusCode())
	}
	return res, nil
}

// CompletedCampaigns fetches all campaigns and filters them locally to
// status "COMPLETED".
func (c *Client) CompletedCampaigns(ctx context.Context) ([]model.Campaign, error) {
	res, err := c.get(ctx, "/campaigns")
	if err != nil {
		return nil, err
	}

	var all []model.Campaign
	if err := json.Unmarshal(res.Body(), &all); err != nil {
		return nil, fmt.Errorf("error parsing campaigns response: %w", err)
	}

	completed := []model.Campaign{}
	for _, campaign := range all {
		if campaign.Status == "COMPLETED" {
			completed = append(completed, campaign)
		}
	}
	log.Printf("Found %d completed campaigns.", len(completed))
	return completed, nil
}

// CompletedLeadIDs fetches a campaign's leads export (CSV) and returns
// the ids of rows with status "COMPLETED".
func (c *Client) CompletedLeadIDs(ctx context.Context, campaignID int) ([]int, error) {
	res, err := c.get(ctx, fmt.Sprintf("/campaigns/%d/leads-export", campaignID))
	if err != nil {
		return nil, err
	}

	ids, err := parseCompletedLeadIDs(res.String())
	if err != nil {
		return nil, fmt.Errorf("error processing leads data for campaign %d: %w", campaignID, err)
	}
	log.Printf("Found %d leads for campaign %d", len(ids), campaignID)
	return ids, nil
}

func parseCompletedLeadIDs(export string) ([]int, error) {
	reader := csv.NewReader(strings.NewReader(export))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []int{}, nil
	}

	idCol, statusCol := -1, -1
	for i, name := range rows[0] {
		switch name {
		case "id":
			idCol = i
		case "status":
			statusCol = i
		}
	}
	if idCol < 0 || statusCol < 0 {
		return nil, fmt.Errorf("leads export is missing id/status columns")
	}

	ids := []int{}
	for _, row := range rows[1:] {
		if row[statusCol] != "COMPLETED" {
			continue
		}
		id, err := strconv.Atoi(row[idCol])
		if err != nil {
			return nil, fmt.Errorf("non-numeric lead id %q: %w", row[idCol], err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MessageHistory fetches the chronological message events for one lead.
func (c *Client) MessageHistory(ctx context.Context, campaignID, leadID int) ([]model.MessageEvent, error) {
	res, err := c.get(ctx, fmt.Sprintf("/campaigns/%d/leads/%d/message-history", campaignID, leadID))
	if err != nil {
		return nil, err
	}

	var payload struct {
		History []model.MessageEvent `json:"history"`
	}
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("error parsing message history for lead %d: %w", leadID, err)
	}
	return payload.History, nil
}

// DeleteLead removes a lead from a campaign. The response body is
// ignored beyond success/failure.
func (c *Client) DeleteLead(ctx context.Context, campaignID, leadID int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	url := fmt.Sprintf("/campaigns/%d/leads/%d", campaignID, leadID)
	res, err := c.http.R().SetContext(ctx).Delete(url)
	if err != nil {
		return err
	}
	if !res.IsSuccess() {
		return appErrors.NewAPIRequestFailed("DELETE", url, res.StatusCode())
	}
	return nil
}
