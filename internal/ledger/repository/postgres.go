package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/assetdesk/ledger-service/internal/ledger/dto"
	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	var asset model.Asset
	err := r.DB.GetContext(ctx, &asset, `SELECT * FROM assets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller maps missing assets to its own error.
		}
		return nil, err
	}
	return &asset, nil
}

func (r *PGRepository) CreateOrUpdateAsset(ctx context.Context, asset *model.Asset) error {
	query := `
        INSERT INTO assets (
            id, name, kind, total_quantity, available,
            borrowing_enabled, created_at, updated_at
        )
        VALUES (
            :id, :name, :kind, :total_quantity, :available,
            :borrowing_enabled, :created_at, :updated_at
        )
        ON CONFLICT (id)
        DO UPDATE SET
            name = EXCLUDED.name,
            total_quantity = EXCLUDED.total_quantity,
            available = EXCLUDED.available,
            borrowing_enabled = EXCLUDED.borrowing_enabled,
            updated_at = EXCLUDED.updated_at
    `
	_, err := r.DB.NamedExecContext(ctx, query, asset)
	return err
}

func (r *PGRepository) FindAssets(ctx context.Context, f *dto.AssetFilters) ([]model.Asset, int, error) {
	var items []model.Asset
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Kind != "" {
		conditions = append(conditions, "kind = :kind")
		args["kind"] = f.Kind
	}
	if f.Name != "" {
		conditions = append(conditions, "name ILIKE :name")
		args["name"] = "%" + f.Name + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM assets" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM assets" + whereClause + " ORDER BY updated_at DESC"
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

func (r *PGRepository) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	var claim model.Claim
	err := r.DB.GetContext(ctx, &claim, `SELECT * FROM claims WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

func (r *PGRepository) ListOpenClaims(ctx context.Context) ([]model.Claim, error) {
	var claims []model.Claim
	err := r.DB.SelectContext(ctx, &claims, `SELECT * FROM claims WHERE state = 'open' ORDER BY opened_at`)
	return claims, err
}

func (r *PGRepository) LogMovement(ctx context.Context, m *model.StockMovement) error {
	query := `
        INSERT INTO stock_movements (
            id, asset_id, claim_id, movement_type, quantity_change,
            quantity_before, quantity_after, notes, created_by, created_at
        )
        VALUES (
            :id, :asset_id, :claim_id, :movement_type, :quantity_change,
            :quantity_before, :quantity_after, :notes, :created_by, :created_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, m)
	return err
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var items []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.AssetID != "" {
		conditions = append(conditions, "asset_id = :asset_id")
		args["asset_id"] = f.AssetID
	}
	if f.ClaimID != "" {
		conditions = append(conditions, "claim_id = :claim_id")
		args["claim_id"] = f.ClaimID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM stock_movements" + whereClause + " ORDER BY created_at DESC"
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

// ApplyClaimChange commits the asset counter, the claim row and the audit
// movement in a single transaction, so the counter can never drift from the
// sum of open claims on a partial failure.
func (r *PGRepository) ApplyClaimChange(ctx context.Context, asset *model.Asset, claim *model.Claim, movement *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updateAsset := `
        UPDATE assets SET
            total_quantity = :total_quantity,
            available = :available,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := tx.NamedExecContext(ctx, updateAsset, asset); err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}

	upsertClaim := `
        INSERT INTO claims (
            id, asset_id, kind, quantity, state, reference, opened_at, closed_at
        )
        VALUES (
            :id, :asset_id, :kind, :quantity, :state, :reference, :opened_at, :closed_at
        )
        ON CONFLICT (id)
        DO UPDATE SET
            quantity = EXCLUDED.quantity,
            state = EXCLUDED.state,
            closed_at = EXCLUDED.closed_at
    `
	if _, err := tx.NamedExecContext(ctx, upsertClaim, claim); err != nil {
		return fmt.Errorf("failed to upsert claim: %w", err)
	}

	insertMovement := `
        INSERT INTO stock_movements (
            id, asset_id, claim_id, movement_type, quantity_change,
            quantity_before, quantity_after, notes, created_by, created_at
        )
        VALUES (
            :id, :asset_id, :claim_id, :movement_type, :quantity_change,
            :quantity_before, :quantity_after, :notes, :created_by, :created_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, insertMovement, movement); err != nil {
		return fmt.Errorf("failed to log movement: %w", err)
	}

	return tx.Commit()
}
