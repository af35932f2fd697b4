package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"franchise_crm/internal/activity"
	"franchise_crm/internal/calls/domain"
	leaddomain "franchise_crm/internal/leads/domain"
	leadrepo "franchise_crm/internal/leads/repository"
	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for call records.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new calls repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogResult is the committed outcome of LogCall.
type LogResult struct {
	Call   domain.CallRecord
	Lead   leaddomain.Lead
	Change leaddomain.StatusChange
}

// LogCall stores the call and, for a connected first call, applies it to the
// lead.
// Everything commits together.
func (r *Repository) LogCall(ctx context.Context, call domain.CallRecord) (LogResult, error) {
	var result LogResult

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lead, err := leadrepo.GetForUpdate(ctx, tx, call.LeadID)
		if err != nil {
			return err
		}
		if err := insertCall(ctx, tx, call); err != nil {
			return err
		}

		change, applied := call.ApplyTo(&lead)
		if applied {
			if err := leadrepo.Save(ctx, tx, lead); err != nil {
				return err
			}
			if change.Changed {
				entry, err := leadrepo.StatusActivity(lead, change, &call.CallerID, "connected call", call.CreatedAt)
				if err != nil {
					return err
				}
				if err := activity.Record(ctx, tx, entry); err != nil {
					return err
				}
			}
		}

		entry, err := activity.New(&lead.ID, lead.AssignedOfficeID, &call.CallerID, activity.TypeCallLogged,
			fmt.Sprintf("Call logged: %s", call.ResultCode),
			map[string]interface{}{
				"callId":     call.ID,
				"callType":   call.CallType,
				"resultCode": call.ResultCode,
				"grade":      call.Grade,
			}, call.CreatedAt)
		if err != nil {
			return err
		}
		if err := activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		result = LogResult{Call: call, Lead: lead, Change: change}
		return nil
	})
	if err != nil {
		return LogResult{}, err
	}
	return result, nil
}

func insertCall(ctx context.Context, q db.Querier, call domain.CallRecord) error {
	script, err := json.Marshal(call.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode script answers: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO call_records (
			id, lead_id, caller_id, call_type, result_code, duration_seconds,
			script_data, grade, meeting_score, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		call.ID, call.LeadID, call.CallerID, string(call.CallType), string(call.ResultCode),
		call.DurationSeconds, script, call.Grade, call.MeetingScore, call.Notes, call.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert call record: %w", err)
	}
	return nil
}

// ListByLead returns the calls of a lead, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.CallRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, caller_id, call_type, result_code, duration_seconds,
			script_data, grade, meeting_score, notes, created_at
		FROM call_records
		WHERE lead_id = $1
		ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	calls := make([]domain.CallRecord, 0)
	for rows.Next() {
		var c domain.CallRecord
		var callType, result string
		var script []byte
		if err := rows.Scan(&c.ID, &c.LeadID, &c.CallerID, &callType, &result, &c.DurationSeconds,
			&script, &c.Grade, &c.MeetingScore, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		c.CallType = domain.CallType(callType)
		c.ResultCode = domain.ResultCode(result)
		if len(script) > 0 {
			if err := json.Unmarshal(script, &c.Answers); err != nil {
				return nil, fmt.Errorf("failed to decode script answers: %w", err)
			}
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calls: %w", err)
	}
	return calls, nil
}
