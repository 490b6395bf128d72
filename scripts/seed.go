package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/krafta/backend/internal/adapters/database"
	"github.com/krafta/backend/internal/adapters/search"
	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/clients/postgres"
	"github.com/krafta/backend/internal/infrastructure/clients/typesense"
	"github.com/krafta/backend/internal/infrastructure/observability"
	"github.com/krafta/backend/internal/infrastructure/session"
	"github.com/krafta/backend/pkg/config"
	"github.com/rs/zerolog/log"
)

// Every demo account shares this password unless SEED_PASSWORD is set
const defaultSeedPassword = "password123"

type seeder struct {
	users       repositories.UserRepository
	technicians repositories.TechnicianRepository
	bookings    repositories.BookingRepository
	reviews     repositories.ReviewRepository
	hash        string
	now         time.Time
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("krafta-seed", cfg.Server.Environment, cfg.Server.LogLevel)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// Demo data replaces whatever is there
	if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE reviews, bookings, technicians, users CASCADE`); err != nil {
		log.Fatal().Err(err).Msg("Failed to clear tables")
	}

	password := defaultSeedPassword
	if v := os.Getenv("SEED_PASSWORD"); v != "" {
		password = v
	}
	hash, err := session.NewBcryptHasher(cfg.Auth.BcryptCost).Hash(password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	s := &seeder{
		users:       database.NewUserAdapter(pgClient),
		technicians: database.NewTechnicianAdapter(pgClient),
		bookings:    database.NewBookingAdapter(pgClient),
		reviews:     database.NewReviewAdapter(pgClient),
		hash:        hash,
		now:         time.Now().UTC(),
	}

	admin := s.user(ctx, "KRAFTA Admin", "admin@krafta.local", "", entities.RoleAdmin)
	customer1 := s.user(ctx, "Noel Customer", "customer@krafta.local", "+1 555 0100", entities.RoleCustomer)
	customer2 := s.user(ctx, "Alex Homeowner", "alex@krafta.local", "+1 555 0101", entities.RoleCustomer)
	electricianUser := s.user(ctx, "Maria Electric", "maria@krafta.local", "+1 555 0200", entities.RoleProfessional)
	plumberUser := s.user(ctx, "James Plumbing", "james@krafta.local", "+1 555 0201", entities.RoleProfessional)

	electrician := s.technician(ctx, &entities.Technician{
		UserID:     electricianUser.ID,
		Title:      "Licensed Residential Electrician",
		Bio:        "10+ years of experience with residential wiring, panel upgrades, and emergency repairs.",
		Skills:     "Wiring,Panel upgrades,Emergency repairs",
		Categories: "Electrical,Appliance Repair",
		BaseRate:   floatPtr(120),
		HourlyRate: floatPtr(80),
		City:       "Lagos",
		Area:       "Lekki Phase 1",
		Latitude:   floatPtr(6.4483),
		Longitude:  floatPtr(3.4845),
		IsVerified: true,
	})

	plumber := s.technician(ctx, &entities.Technician{
		UserID:     plumberUser.ID,
		Title:      "Emergency Plumber",
		Bio:        "Fast response for leaks, blockages, and bathroom/kitchen installations.",
		Skills:     "Leak detection,Pipe replacement,Bathroom installs",
		Categories: "Plumbing",
		BaseRate:   floatPtr(100),
		HourlyRate: floatPtr(70),
		City:       "Lagos",
		Area:       "Yaba",
		Latitude:   floatPtr(6.5173),
		Longitude:  floatPtr(3.3869),
		IsVerified: true,
	})

	completed := s.booking(ctx, &entities.Booking{
		CustomerID:   customer1.ID,
		TechnicianID: electrician.ID,
		Status:       entities.BookingStatusCompleted,
		ScheduledFor: &s.now,
		CompletedAt:  &s.now,
		Description:  "Living room lights flickering and one socket not working.",
		Address:      "Customer address, Lekki Phase 1",
		PriceQuoted:  floatPtr(150),
	})

	tomorrow := s.now.Add(24 * time.Hour)
	s.booking(ctx, &entities.Booking{
		CustomerID:   customer2.ID,
		TechnicianID: plumber.ID,
		Status:       entities.BookingStatusAccepted,
		ScheduledFor: &tomorrow,
		Description:  "Kitchen sink leakage and low water pressure.",
		Address:      "Customer address, Yaba",
		PriceQuoted:  floatPtr(130),
	})

	rated, err := s.reviews.CreateAndAggregate(ctx, &entities.Review{
		ID:           uuid.New().String(),
		BookingID:    completed.ID,
		CustomerID:   customer1.ID,
		TechnicianID: electrician.ID,
		Rating:       5,
		Comment:      "Arrived on time, fixed everything quickly, and explained the issue clearly.",
		CreatedAt:    s.now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed review")
	}
	if rated != nil {
		electrician = rated
	}

	if cfg.Typesense.Enabled {
		indexDirectory(ctx, cfg, s, electrician, plumber)
	}

	log.Info().
		Str("admin", admin.Email).
		Strs("customers", []string{customer1.Email, customer2.Email}).
		Strs("technicians", []string{electricianUser.Email, plumberUser.Email}).
		Msg("Seed complete")
}

func (s *seeder) user(ctx context.Context, name, email, phone string, role entities.Role) *entities.User {
	user := &entities.User{
		ID:             uuid.New().String(),
		Name:           name,
		Email:          email,
		Phone:          phone,
		HashedPassword: s.hash,
		Role:           role,
		CreatedAt:      s.now,
		UpdatedAt:      s.now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		log.Fatal().Err(err).Str("email", email).Msg("Failed to seed user")
	}
	return user
}

func (s *seeder) technician(ctx context.Context, t *entities.Technician) *entities.Technician {
	t.ID = uuid.New().String()
	t.CreatedAt = s.now
	t.UpdatedAt = s.now
	if err := s.technicians.Create(ctx, t); err != nil {
		log.Fatal().Err(err).Str("title", t.Title).Msg("Failed to seed technician")
	}
	return t
}

func (s *seeder) booking(ctx context.Context, b *entities.Booking) *entities.Booking {
	b.ID = uuid.New().String()
	b.RequestedAt = s.now
	b.UpdatedAt = s.now
	if err := s.bookings.Create(ctx, b); err != nil {
		log.Fatal().Err(err).Str("description", b.Description).Msg("Failed to seed booking")
	}
	return b
}

func indexDirectory(ctx context.Context, cfg *config.Config, s *seeder, technicians ...*entities.Technician) {
	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable, skipping directory index")
		return
	}
	if err := tsClient.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to init Typesense schema, skipping directory index")
		return
	}

	var provider providers.TechnicianSearchProvider = search.NewTypesenseAdapter(tsClient)
	indexer := services.NewDirectoryIndexService(provider, s.users)
	for _, t := range technicians {
		indexer.IndexTechnician(ctx, t)
	}
	log.Info().Int("count", len(technicians)).Msg("Indexed seeded technicians")
}

func floatPtr(v float64) *float64 { return &v }
