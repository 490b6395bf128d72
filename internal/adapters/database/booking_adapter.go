package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/krafta/backend/pkg/errors"
)

var bookingColumns = []any{
	"id", "customer_id", "technician_id", "status", "description", "address",
	"price_quoted", "scheduled_for", "requested_at", "completed_at",
	"payment_reference", "payment_attempts", "updated_at",
}

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookingAdapter creates a new booking adapter
func NewBookingAdapter(client *postgres.Client) repositories.BookingRepository {
	return &BookingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanBooking(row rowScanner) (*entities.Booking, error) {
	b := &entities.Booking{}
	var priceQuoted sql.NullFloat64
	var scheduledFor, completedAt sql.NullTime

	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.TechnicianID,
		&b.Status,
		&b.Description,
		&b.Address,
		&priceQuoted,
		&scheduledFor,
		&b.RequestedAt,
		&completedAt,
		&b.PaymentReference,
		&b.PaymentAttempts,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.PriceQuoted = floatPtr(priceQuoted)
	b.ScheduledFor = timePtr(scheduledFor)
	b.CompletedAt = timePtr(completedAt)
	return b, nil
}

// Create creates a new booking
func (a *BookingAdapter) Create(ctx context.Context, b *entities.Booking) error {
	record := goqu.Record{
		"id":                b.ID,
		"customer_id":       b.CustomerID,
		"technician_id":     b.TechnicianID,
		"status":            b.Status,
		"description":       b.Description,
		"address":           b.Address,
		"price_quoted":      nullFloat(b.PriceQuoted),
		"scheduled_for":     nullTime(b.ScheduledFor),
		"requested_at":      b.RequestedAt,
		"completed_at":      nullTime(b.CompletedAt),
		"payment_reference": b.PaymentReference,
		"payment_attempts":  b.PaymentAttempts,
		"updated_at":        b.UpdatedAt,
	}

	query, args, err := a.db.Insert("bookings").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create booking", err)
	}
	return nil
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, args, err := a.db.Select(bookingColumns...).From("bookings").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	b, err := scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows || isMalformedID(err) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return b, nil
}

// Transition updates the status only if the row still holds one of the
// expected statuses, so two racing callers cannot both succeed.
func (a *BookingAdapter) Transition(ctx context.Context, change entities.BookingChange) (bool, error) {
	if len(change.From) == 0 {
		return false, apperrors.NewInternalError("failed to build transition", fmt.Errorf("no source status for %s", change.To))
	}

	record := goqu.Record{
		"status":     change.To,
		"updated_at": time.Now().UTC(),
	}
	if change.PriceQuoted != nil {
		record["price_quoted"] = *change.PriceQuoted
	}
	if change.ScheduledFor != nil {
		record["scheduled_for"] = *change.ScheduledFor
	}
	if change.CompletedAt != nil {
		record["completed_at"] = *change.CompletedAt
	}
	if change.PaymentReference != nil {
		record["payment_reference"] = *change.PaymentReference
	}

	where := goqu.Ex{
		"id":     change.BookingID,
		"status": change.From,
	}
	if change.CustomerID != "" {
		where["customer_id"] = change.CustomerID
	}
	if change.TechnicianID != "" {
		where["technician_id"] = change.TechnicianID
	}

	query, args, err := a.db.Update("bookings").Set(record).Where(where).ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build transition query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if isMalformedID(err) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to update booking", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected == 1, nil
}

// RecordDeclinedPayment counts a declined charge on an ACCEPTED booking so
// the next charge uses a new idempotency key
func (a *BookingAdapter) RecordDeclinedPayment(ctx context.Context, id string) error {
	query, args, err := a.db.Update("bookings").
		Set(goqu.Record{
			"payment_attempts": goqu.L("payment_attempts + 1"),
			"updated_at":       time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id, "status": entities.BookingStatusAccepted}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build payment attempt query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to record payment attempt", err)
	}
	return nil
}

// List retrieves bookings matching the filter
func (a *BookingAdapter) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	ds := a.db.Select(bookingColumns...).From("bookings")
	if where := bookingWhere(filter); len(where) > 0 {
		ds = ds.Where(where)
	}

	switch filter.Sort {
	case repositories.SortScheduledAsc:
		ds = ds.Order(goqu.I("scheduled_for").Asc().NullsLast(), goqu.I("requested_at").Desc())
	case repositories.SortCompletedDesc:
		ds = ds.Order(goqu.I("completed_at").Desc().NullsLast(), goqu.I("updated_at").Desc())
	case repositories.SortUpdatedDesc:
		ds = ds.Order(goqu.I("updated_at").Desc())
	default:
		ds = ds.Order(goqu.I("requested_at").Desc())
	}

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	defer rows.Close()

	bookings := []*entities.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan booking", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate bookings", err)
	}
	return bookings, nil
}

func bookingWhere(filter repositories.BookingFilter) goqu.Ex {
	where := goqu.Ex{}
	if filter.CustomerID != "" {
		where["customer_id"] = filter.CustomerID
	}
	if filter.TechnicianID != "" {
		where["technician_id"] = filter.TechnicianID
	}
	if len(filter.Statuses) > 0 {
		where["status"] = filter.Statuses
	}
	if filter.PricedOnly {
		where["price_quoted"] = goqu.Op{"isNot": nil}
	}
	return where
}

// CountMatching counts bookings matching the filter
func (a *BookingAdapter) CountMatching(ctx context.Context, filter repositories.BookingFilter) (int, error) {
	ds := a.db.From("bookings").Select(goqu.COUNT("*"))
	if where := bookingWhere(filter); len(where) > 0 {
		ds = ds.Where(where)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count bookings", err)
	}
	return count, nil
}

// Count returns the total number of bookings
func (a *BookingAdapter) Count(ctx context.Context) (int, error) {
	return countRows(ctx, a.client, a.db, "bookings")
}

// SumEarnings totals the quoted price of a technician's completed bookings
func (a *BookingAdapter) SumEarnings(ctx context.Context, technicianID string) (float64, error) {
	query, args, err := a.db.From("bookings").
		Select(goqu.COALESCE(goqu.SUM("price_quoted"), 0)).
		Where(goqu.Ex{
			"technician_id": technicianID,
			"status":        entities.BookingStatusCompleted,
		}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build earnings query", err)
	}

	var total float64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperrors.NewInternalError("failed to sum earnings", err)
	}
	return total, nil
}
