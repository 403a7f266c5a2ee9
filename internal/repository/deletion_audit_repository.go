package repository

import (
	"database/sql"
	"time"
)

// DeletionRecorder defines the methods the pipeline needs
type DeletionRecorder interface {
	RecordDeletion(campaignID, leadID int, deletedAt time.Time) error
}

// DeletionAuditRepository is the concrete implementation; it keeps one
// row per deleted lead so sweeps leave a trail.
type DeletionAuditRepository struct {
	DB *sql.DB
}

// RecordDeletion inserts an audit row for one deleted lead
func (r *DeletionAuditRepository) RecordDeletion(campaignID, leadID int, deletedAt time.Time) error {
	query := `
        INSERT INTO lead_deletions (campaign_id, lead_id, deleted_at)
        VALUES ($1, $2, $3)
    `
	_, err := r.DB.Exec(query, campaignID, leadID, deletedAt)
	return err
}
