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

var technicianColumns = []any{
	"id", "user_id", "title", "bio", "skills", "categories", "city", "area",
	"latitude", "longitude", "base_rate", "hourly_rate",
	"is_verified", "average_rating", "review_count", "created_at", "updated_at",
}

// TechnicianAdapter implements the TechnicianRepository interface
type TechnicianAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTechnicianAdapter creates a new technician adapter
func NewTechnicianAdapter(client *postgres.Client) repositories.TechnicianRepository {
	return &TechnicianAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanTechnician(row rowScanner) (*entities.Technician, error) {
	t := &entities.Technician{}
	var latitude, longitude, baseRate, hourlyRate sql.NullFloat64

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Bio,
		&t.Skills,
		&t.Categories,
		&t.City,
		&t.Area,
		&latitude,
		&longitude,
		&baseRate,
		&hourlyRate,
		&t.IsVerified,
		&t.AverageRating,
		&t.ReviewCount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Latitude = floatPtr(latitude)
	t.Longitude = floatPtr(longitude)
	t.BaseRate = floatPtr(baseRate)
	t.HourlyRate = floatPtr(hourlyRate)
	return t, nil
}

// Create creates a new technician profile
func (a *TechnicianAdapter) Create(ctx context.Context, t *entities.Technician) error {
	record := goqu.Record{
		"id":             t.ID,
		"user_id":        t.UserID,
		"title":          t.Title,
		"bio":            t.Bio,
		"skills":         t.Skills,
		"categories":     t.Categories,
		"city":           t.City,
		"area":           t.Area,
		"latitude":       nullFloat(t.Latitude),
		"longitude":      nullFloat(t.Longitude),
		"base_rate":      nullFloat(t.BaseRate),
		"hourly_rate":    nullFloat(t.HourlyRate),
		"is_verified":    t.IsVerified,
		"average_rating": t.AverageRating,
		"review_count":   t.ReviewCount,
		"created_at":     t.CreatedAt,
		"updated_at":     t.UpdatedAt,
	}

	query, args, err := a.db.Insert("technicians").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("Profile already exists")
		}
		return apperrors.NewInternalError("failed to create technician", err)
	}
	return nil
}

// GetByID retrieves a technician by ID
func (a *TechnicianAdapter) GetByID(ctx context.Context, id string) (*entities.Technician, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, "Technician not found")
}

// GetByUserID retrieves the profile owned by a user
func (a *TechnicianAdapter) GetByUserID(ctx context.Context, userID string) (*entities.Technician, error) {
	return a.getOne(ctx, goqu.Ex{"user_id": userID}, fmt.Sprintf("no technician profile for user %s", userID))
}

func (a *TechnicianAdapter) getOne(ctx context.Context, where goqu.Ex, notFound string) (*entities.Technician, error) {
	query, args, err := a.db.Select(technicianColumns...).From("technicians").Where(where).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	t, err := scanTechnician(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows || isMalformedID(err) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get technician", err)
	}
	return t, nil
}

// GetByIDs retrieves technicians in bulk
func (a *TechnicianAdapter) GetByIDs(ctx context.Context, ids []string) (map[string]*entities.Technician, error) {
	result := make(map[string]*entities.Technician, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := a.db.Select(technicianColumns...).From("technicians").Where(goqu.Ex{"id": ids}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	list, err := a.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		result[t.ID] = t
	}
	return result, nil
}

// List retrieves technicians matching the filter
func (a *TechnicianAdapter) List(ctx context.Context, filter repositories.TechnicianFilter) ([]*entities.Technician, error) {
	ds := a.db.Select(technicianColumns...).From("technicians")

	var conditions []exp.Expression
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		conditions = append(conditions, goqu.Or(
			goqu.I("title").ILike(pattern),
			goqu.I("skills").ILike(pattern),
			goqu.I("categories").ILike(pattern),
		))
	}
	if filter.City != "" {
		conditions = append(conditions, goqu.I("city").ILike(filter.City))
	}
	if len(conditions) > 0 {
		ds = ds.Where(conditions...)
	}

	switch filter.Order {
	case repositories.OrderVerifiedFirst:
		ds = ds.Order(
			goqu.I("is_verified").Desc(),
			goqu.I("average_rating").Desc(),
			goqu.I("created_at").Desc(),
		)
	default:
		ds = ds.Order(goqu.I("created_at").Desc())
	}

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

func (a *TechnicianAdapter) query(ctx context.Context, query string, args []any) ([]*entities.Technician, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list technicians", err)
	}
	defer rows.Close()

	list := []*entities.Technician{}
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan technician", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate technicians", err)
	}
	return list, nil
}

// Count returns the total number of technicians
func (a *TechnicianAdapter) Count(ctx context.Context) (int, error) {
	return countRows(ctx, a.client, a.db, "technicians")
}

// SetVerified sets the verification flag
func (a *TechnicianAdapter) SetVerified(ctx context.Context, id string, verified bool) error {
	query, args, err := a.db.Update("technicians").
		Set(goqu.Record{
			"is_verified": verified,
			"updated_at":  time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if isMalformedID(err) {
		return apperrors.NewNotFoundError("Technician not found")
	}
	if err != nil {
		return apperrors.NewInternalError("failed to update technician", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError("Technician not found")
	}
	return nil
}
