package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

const offerColumns = `seq, offer_key, owner, token, offer_id, nonce, min_loan_amount, amount,
	interest_rate_bps, expiration, min_loan_duration, max_loan_duration, signature,
	payload_hash, created_at, revoked_at`

type offerRow struct {
	Seq             int64           `db:"seq"`
	Key             string          `db:"offer_key"`
	Owner           string          `db:"owner"`
	Token           string          `db:"token"`
	OfferID         int64           `db:"offer_id"`
	Nonce           int64           `db:"nonce"`
	MinLoanAmount   decimal.Decimal `db:"min_loan_amount"`
	Amount          decimal.Decimal `db:"amount"`
	InterestRateBPS int64           `db:"interest_rate_bps"`
	Expiration      int64           `db:"expiration"`
	MinLoanDuration int64           `db:"min_loan_duration"`
	MaxLoanDuration int64           `db:"max_loan_duration"`
	Signature       []byte          `db:"signature"`
	PayloadHash     string          `db:"payload_hash"`
	CreatedAt       time.Time       `db:"created_at"`
	RevokedAt       sql.NullTime    `db:"revoked_at"`
}

func (r *offerRow) toDomain() *domain.Offer {
	offer := &domain.Offer{
		Key:             common.HexToHash(r.Key),
		Owner:           common.HexToAddress(r.Owner),
		Token:           common.HexToAddress(r.Token),
		OfferID:         r.OfferID,
		Nonce:           r.Nonce,
		MinLoanAmount:   r.MinLoanAmount,
		Amount:          r.Amount,
		InterestRateBPS: r.InterestRateBPS,
		Expiration:      r.Expiration,
		MinLoanDuration: r.MinLoanDuration,
		MaxLoanDuration: r.MaxLoanDuration,
		Signature:       r.Signature,
		PayloadHash:     common.HexToHash(r.PayloadHash),
		Seq:             r.Seq,
		CreatedAt:       r.CreatedAt,
	}
	if r.RevokedAt.Valid {
		revokedAt := r.RevokedAt.Time
		offer.RevokedAt = &revokedAt
	}
	return offer
}

type offerRepository struct {
	db *sqlx.DB
}

func NewOfferRepository(db *sqlx.DB) OfferRepository {
	return &offerRepository{db: db}
}

// EnsureSchema creates the offers table and its indexes when missing
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}

func (r *offerRepository) Put(ctx context.Context, offer *domain.Offer) (bool, error) {
	query := `
		INSERT INTO offers (offer_key, owner, token, offer_id, nonce, min_loan_amount, amount,
			interest_rate_bps, expiration, min_loan_duration, max_loan_duration, signature, payload_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq, created_at
	`

	var inserted struct {
		Seq       int64     `db:"seq"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := r.db.QueryRowxContext(ctx, query,
		hexKey(offer.Key),
		hexAddress(offer.Owner),
		hexAddress(offer.Token),
		offer.OfferID,
		offer.Nonce,
		offer.MinLoanAmount,
		offer.Amount,
		offer.InterestRateBPS,
		offer.Expiration,
		offer.MinLoanDuration,
		offer.MaxLoanDuration,
		[]byte(offer.Signature),
		hexKey(offer.PayloadHash),
	).StructScan(&inserted)
	if err == nil {
		offer.Seq = inserted.Seq
		offer.CreatedAt = inserted.CreatedAt
		return true, nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false, err
	}

	// The key is taken; the first writer wins unless this is the same payload again
	existing, getErr := r.Get(ctx, offer.Key)
	if getErr != nil {
		return false, fmt.Errorf("load existing offer: %w", getErr)
	}
	if existing.PayloadHash != offer.PayloadHash {
		return false, ErrDuplicateKey
	}
	*offer = *existing
	return false, nil
}

func (r *offerRepository) Get(ctx context.Context, key common.Hash) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE offer_key = $1`

	var row offerRow
	err := r.db.GetContext(ctx, &row, query, hexKey(key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain(), nil
}

func (r *offerRepository) ListByOwner(ctx context.Context, owner common.Address) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE owner = $1 ORDER BY seq`
	return r.selectOffers(ctx, query, hexAddress(owner))
}

func (r *offerRepository) ListByToken(ctx context.Context, token common.Address) ([]*domain.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE token = $1 AND revoked_at IS NULL
		ORDER BY interest_rate_bps ASC, seq ASC
	`
	return r.selectOffers(ctx, query, hexAddress(token))
}

func (r *offerRepository) ListActive(ctx context.Context) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE revoked_at IS NULL ORDER BY seq`
	return r.selectOffers(ctx, query)
}

func (r *offerRepository) MarkRevoked(ctx context.Context, key common.Hash, at time.Time) error {
	query := `
		UPDATE offers
		SET revoked_at = $2
		WHERE offer_key = $1 AND revoked_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, hexKey(key), at)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either unknown or already revoked
		if _, err := r.Get(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (r *offerRepository) MaxOfferID(ctx context.Context, owner common.Address) (int64, bool, error) {
	query := `SELECT MAX(offer_id) FROM offers WHERE owner = $1`

	var maxID sql.NullInt64
	if err := r.db.GetContext(ctx, &maxID, query, hexAddress(owner)); err != nil {
		return 0, false, err
	}
	return maxID.Int64, maxID.Valid, nil
}

func (r *offerRepository) selectOffers(ctx context.Context, query string, args ...any) ([]*domain.Offer, error) {
	var rows []offerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	offers := make([]*domain.Offer, 0, len(rows))
	for i := range rows {
		offers = append(offers, rows[i].toDomain())
	}
	return offers, nil
}

func hexAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func hexKey(h common.Hash) string {
	return h.Hex()
}
