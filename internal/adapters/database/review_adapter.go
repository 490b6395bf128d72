package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/krafta/backend/pkg/errors"
)

var reviewColumns = []any{
	"id", "booking_id", "customer_id", "technician_id", "rating", "comment", "created_at",
}

// ReviewAdapter implements the ReviewRepository interface
type ReviewAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReviewAdapter creates a new review adapter
func NewReviewAdapter(client *postgres.Client) repositories.ReviewRepository {
	return &ReviewAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanReview(row rowScanner) (*entities.Review, error) {
	r := &entities.Review{}
	err := row.Scan(
		&r.ID,
		&r.BookingID,
		&r.CustomerID,
		&r.TechnicianID,
		&r.Rating,
		&r.Comment,
		&r.CreatedAt,
	)
	return r, err
}

// CreateAndAggregate inserts the review and refreshes the technician's
// rating aggregate inside one transaction. The technician row is locked
// first so concurrent reviews for the same technician serialize and each
// aggregate sees every committed rating.
func (a *ReviewAdapter) CreateAndAggregate(ctx context.Context, review *entities.Review) (*entities.Technician, error) {
	tx, err := a.client.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := a.lockTechnician(ctx, tx, review.TechnicianID); err != nil {
		return nil, err
	}

	insert, args, err := a.db.Insert("reviews").Rows(goqu.Record{
		"id":            review.ID,
		"booking_id":    review.BookingID,
		"customer_id":   review.CustomerID,
		"technician_id": review.TechnicianID,
		"rating":        review.Rating,
		"comment":       review.Comment,
		"created_at":    review.CreatedAt,
	}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("Review already submitted")
		}
		return nil, apperrors.NewInternalError("failed to create review", err)
	}

	average, count, err := a.ratingAggregate(ctx, tx, review.TechnicianID)
	if err != nil {
		return nil, err
	}

	update, args, err := a.db.Update("technicians").
		Set(goqu.Record{
			"average_rating": average,
			"review_count":   count,
			"updated_at":     time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": review.TechnicianID}).
		Returning(technicianColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build rating update", err)
	}

	technician, err := scanTechnician(tx.QueryRowContext(ctx, update, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Technician not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update technician rating", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit review", err)
	}
	return technician, nil
}

func (a *ReviewAdapter) lockTechnician(ctx context.Context, tx *sql.Tx, technicianID string) error {
	query, args, err := a.db.From("technicians").
		Select("id").
		Where(goqu.Ex{"id": technicianID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build lock query", err)
	}

	var id string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows || isMalformedID(err) {
		return apperrors.NewNotFoundError("Technician not found")
	}
	if err != nil {
		return apperrors.NewInternalError("failed to lock technician", err)
	}
	return nil
}

func (a *ReviewAdapter) ratingAggregate(ctx context.Context, tx *sql.Tx, technicianID string) (float64, int, error) {
	query, args, err := a.db.From("reviews").
		Select(goqu.COALESCE(goqu.AVG("rating"), 0), goqu.COUNT("*")).
		Where(goqu.Ex{"technician_id": technicianID}).
		ToSQL()
	if err != nil {
		return 0, 0, apperrors.NewInternalError("failed to build ratings query", err)
	}

	var average float64
	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&average, &count); err != nil {
		return 0, 0, apperrors.NewInternalError("failed to aggregate ratings", err)
	}
	return average, count, nil
}

// GetByBookingID retrieves the review of a booking
func (a *ReviewAdapter) GetByBookingID(ctx context.Context, bookingID string) (*entities.Review, error) {
	query, args, err := a.db.Select(reviewColumns...).From("reviews").Where(goqu.Ex{"booking_id": bookingID}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	r, err := scanReview(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows || isMalformedID(err) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no review for booking %s", bookingID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get review", err)
	}
	return r, nil
}

// GetByBookingIDs retrieves reviews in bulk, keyed by booking ID
func (a *ReviewAdapter) GetByBookingIDs(ctx context.Context, bookingIDs []string) (map[string]*entities.Review, error) {
	result := make(map[string]*entities.Review, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return result, nil
	}

	query, args, err := a.db.Select(reviewColumns...).From("reviews").Where(goqu.Ex{"booking_id": bookingIDs}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	reviews, err := a.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		result[r.BookingID] = r
	}
	return result, nil
}

// ListByTechnician retrieves a technician's reviews, newest first
func (a *ReviewAdapter) ListByTechnician(ctx context.Context, technicianID string, limit int) ([]*entities.Review, error) {
	ds := a.db.Select(reviewColumns...).From("reviews").
		Where(goqu.Ex{"technician_id": technicianID}).
		Order(goqu.I("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

func (a *ReviewAdapter) query(ctx context.Context, query string, args []any) ([]*entities.Review, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list reviews", err)
	}
	defer rows.Close()

	reviews := []*entities.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan review", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate reviews", err)
	}
	return reviews, nil
}
