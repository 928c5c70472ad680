package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
	"github.com/opentender/sealed-tender-backend/internal/service/tendering"
)

// postgresTenderRepository implements tendering.TenderRepository on
// PostgreSQL. Per-tender isolation comes from SELECT ... FOR UPDATE on
// the tender row: every Mutate serializes on that row lock while
// different tenders proceed independently.
type postgresTenderRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTenderRepository creates a Postgres-backed repository
func NewPostgresTenderRepository(pool *pgxpool.Pool) tendering.TenderRepository {
	return &postgresTenderRepository{pool: pool}
}

// Create stores a new tender
func (r *postgresTenderRepository) Create(ctx context.Context, t *tender.Tender) error {
	query := `
		INSERT INTO tenders (
			id, creator, title, description, doc_ref, min_bid,
			bidding_deadline, reveal_deadline, closed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Creator, t.Title, t.Description, t.DocRef, t.MinBid.Units(),
		t.BiddingDeadline, t.RevealDeadline, t.Closed, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tender: %w", err)
	}
	return nil
}

// GetByID loads the full aggregate outside any transaction; reads see a
// consistent snapshot because each statement runs against one MVCC view
// and the aggregate is reassembled from a single connection.
func (r *postgresTenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*tender.Tender, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := loadTender(ctx, tx, id, false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit read transaction: %w", err)
	}
	return t, nil
}

// List returns all tenders with their commitment and reveal sets
func (r *postgresTenderRepository) List(ctx context.Context) ([]*tender.Tender, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, creator, title, description, doc_ref, min_bid,
		       bidding_deadline, reveal_deadline, closed, created_at
		FROM tenders
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenders: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*tender.Tender)
	var tenders []*tender.Tender
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		byID[t.ID] = t
		tenders = append(tenders, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenders: %w", err)
	}

	if err := r.attachChildren(ctx, byID); err != nil {
		return nil, err
	}
	return tenders, nil
}

func (r *postgresTenderRepository) attachChildren(ctx context.Context, byID map[uuid.UUID]*tender.Tender) error {
	commitRows, err := r.pool.Query(ctx, `
		SELECT tender_id, bidder, ciphertext, submitted_at FROM commitments
	`)
	if err != nil {
		return fmt.Errorf("failed to load commitments: %w", err)
	}
	defer commitRows.Close()
	for commitRows.Next() {
		var c tender.Commitment
		if err := commitRows.Scan(&c.TenderID, &c.Bidder, &c.Ciphertext, &c.SubmittedAt); err != nil {
			return fmt.Errorf("failed to scan commitment: %w", err)
		}
		if t, ok := byID[c.TenderID]; ok {
			t.Commitments[c.Bidder] = &c
		}
	}
	if err := commitRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate commitments: %w", err)
	}

	revealRows, err := r.pool.Query(ctx, `
		SELECT tender_id, bidder, amount, revealed_at FROM reveals
	`)
	if err != nil {
		return fmt.Errorf("failed to load reveals: %w", err)
	}
	defer revealRows.Close()
	for revealRows.Next() {
		var rv tender.Reveal
		if err := revealRows.Scan(&rv.TenderID, &rv.Bidder, &rv.Amount, &rv.RevealedAt); err != nil {
			return fmt.Errorf("failed to scan reveal: %w", err)
		}
		if t, ok := byID[rv.TenderID]; ok {
			t.Reveals[rv.Bidder] = &rv
		}
	}
	if err := revealRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate reveals: %w", err)
	}

	winnerRows, err := r.pool.Query(ctx, `
		SELECT tender_id, bidder, amount, selected_at FROM winners
	`)
	if err != nil {
		return fmt.Errorf("failed to load winners: %w", err)
	}
	defer winnerRows.Close()
	for winnerRows.Next() {
		var w tender.Winner
		if err := winnerRows.Scan(&w.TenderID, &w.Bidder, &w.Amount, &w.SelectedAt); err != nil {
			return fmt.Errorf("failed to scan winner: %w", err)
		}
		if t, ok := byID[w.TenderID]; ok {
			t.Winner = &w
		}
	}
	return winnerRows.Err()
}

// Mutate loads the aggregate under a row lock, applies fn, and persists
// the result in the same transaction. A failed fn rolls back with no
// partial writes; concurrent mutations against one tender queue on the
// row lock, so duplicate checks and close-exactly-once are race-free.
func (r *postgresTenderRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(*tender.Tender) error) (*tender.Tender, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := loadTender(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	if err := fn(t); err != nil {
		return nil, err
	}

	if err := persistTender(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit mutation: %w", err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTender(row rowScanner) (*tender.Tender, error) {
	t := &tender.Tender{
		Commitments: make(map[string]*tender.Commitment),
		Reveals:     make(map[string]*tender.Reveal),
	}
	err := row.Scan(&t.ID, &t.Creator, &t.Title, &t.Description, &t.DocRef, &t.MinBid,
		&t.BiddingDeadline, &t.RevealDeadline, &t.Closed, &t.CreatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrTenderNotFound
		}
		return nil, fmt.Errorf("failed to scan tender: %w", err)
	}
	return t, nil
}

func loadTender(ctx context.Context, tx pgx.Tx, id uuid.UUID, forUpdate bool) (*tender.Tender, error) {
	query := `
		SELECT id, creator, title, description, doc_ref, min_bid,
		       bidding_deadline, reveal_deadline, closed, created_at
		FROM tenders
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	t, err := scanTender(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	commitRows, err := tx.Query(ctx, `
		SELECT tender_id, bidder, ciphertext, submitted_at
		FROM commitments WHERE tender_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load commitments: %w", err)
	}
	defer commitRows.Close()
	for commitRows.Next() {
		var c tender.Commitment
		if err := commitRows.Scan(&c.TenderID, &c.Bidder, &c.Ciphertext, &c.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan commitment: %w", err)
		}
		t.Commitments[c.Bidder] = &c
	}
	if err := commitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commitments: %w", err)
	}

	revealRows, err := tx.Query(ctx, `
		SELECT tender_id, bidder, amount, revealed_at
		FROM reveals WHERE tender_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reveals: %w", err)
	}
	defer revealRows.Close()
	for revealRows.Next() {
		var rv tender.Reveal
		if err := revealRows.Scan(&rv.TenderID, &rv.Bidder, &rv.Amount, &rv.RevealedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reveal: %w", err)
		}
		t.Reveals[rv.Bidder] = &rv
	}
	if err := revealRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reveals: %w", err)
	}

	var w tender.Winner
	err = tx.QueryRow(ctx, `
		SELECT tender_id, bidder, amount, selected_at
		FROM winners WHERE tender_id = $1
	`, id).Scan(&w.TenderID, &w.Bidder, &w.Amount, &w.SelectedAt)
	switch {
	case err == nil:
		t.Winner = &w
	case stderrors.Is(err, pgx.ErrNoRows):
		// no winner yet
	default:
		return nil, fmt.Errorf("failed to load winner: %w", err)
	}

	return t, nil
}

// persistTender syncs the aggregate back. The aggregate only ever adds
// commitments and reveals and flips closed once, so idempotent inserts
// with conflict suppression plus one update cover every mutation; the
// primary keys double as a second line behind the aggregate's duplicate
// checks.
func persistTender(ctx context.Context, tx pgx.Tx, t *tender.Tender) error {
	if _, err := tx.Exec(ctx, `
		UPDATE tenders SET closed = $2 WHERE id = $1
	`, t.ID, t.Closed); err != nil {
		return fmt.Errorf("failed to update tender: %w", err)
	}

	for _, c := range t.Commitments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO commitments (tender_id, bidder, ciphertext, submitted_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tender_id, bidder) DO NOTHING
		`, c.TenderID, c.Bidder, c.Ciphertext, c.SubmittedAt); err != nil {
			return fmt.Errorf("failed to insert commitment: %w", err)
		}
	}

	for _, rv := range t.Reveals {
		if _, err := tx.Exec(ctx, `
			INSERT INTO reveals (tender_id, bidder, amount, revealed_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tender_id, bidder) DO NOTHING
		`, rv.TenderID, rv.Bidder, rv.Amount.Units(), rv.RevealedAt); err != nil {
			return fmt.Errorf("failed to insert reveal: %w", err)
		}
	}

	if t.Winner != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO winners (tender_id, bidder, amount, selected_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tender_id) DO NOTHING
		`, t.Winner.TenderID, t.Winner.Bidder, t.Winner.Amount.Units(), t.Winner.SelectedAt); err != nil {
			return fmt.Errorf("failed to insert winner: %w", err)
		}
	}
	return nil
}
