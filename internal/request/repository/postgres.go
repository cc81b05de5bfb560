package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/assetdesk/ledger-service/internal/request/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, req *model.AcquisitionRequest) error {
	query := `
        INSERT INTO acquisition_requests (
            id, asset_name, quantity, requested_by, state,
            auto_declined, prior_state, created_at, deadline, resolved_at
        )
        VALUES (
            :id, :asset_name, :quantity, :requested_by, :state,
            :auto_declined, :prior_state, :created_at, :deadline, :resolved_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, req)
	return err
}

func (r *PGRepository) Get(ctx context.Context, id string) (*model.AcquisitionRequest, error) {
	var req model.AcquisitionRequest
	err := r.DB.GetContext(ctx, &req, `SELECT * FROM acquisition_requests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.RequestFilters) ([]model.AcquisitionRequest, int, error) {
	var items []model.AcquisitionRequest
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.State != "" {
		conditions = append(conditions, "state = :state")
		args["state"] = f.State
	}
	if f.RequestedBy != "" {
		conditions = append(conditions, "requested_by = :requested_by")
		args["requested_by"] = f.RequestedBy
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM acquisition_requests" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM acquisition_requests" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

// CompareAndSwap writes the record only when the stored state still equals
// expect. RowsAffected == 0 means another caller transitioned first.
func (r *PGRepository) CompareAndSwap(ctx context.Context, req *model.AcquisitionRequest, expect model.RequestState) (bool, error) {
	query := `
        UPDATE acquisition_requests SET
            state = :state,
            auto_declined = :auto_declined,
            prior_state = :prior_state,
            resolved_at = :resolved_at
        WHERE id = :id AND state = :expect_state
    `
	arg := map[string]interface{}{
		"id":            req.ID,
		"state":         req.State,
		"auto_declined": req.AutoDeclined,
		"prior_state":   req.PriorState,
		"resolved_at":   req.ResolvedAt,
		"expect_state":  expect,
	}

	res, err := r.DB.NamedExecContext(ctx, query, arg)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *PGRepository) ListPendingDue(ctx context.Context, now time.Time) ([]model.AcquisitionRequest, error) {
	var items []model.AcquisitionRequest
	query := `
        SELECT * FROM acquisition_requests
        WHERE state = 'pending' AND deadline <= $1
        ORDER BY deadline
    `
	err := r.DB.SelectContext(ctx, &items, query, now)
	return items, err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM acquisition_requests WHERE id = $1`, id)
	return err
}
