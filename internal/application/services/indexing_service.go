package services

import (
	"context"
	"time"

	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/observability"
)

// DirectoryIndexer keeps the technician search index in step with writes
type DirectoryIndexer interface {
	IndexTechnician(ctx context.Context, technician *entities.Technician)
	RemoveTechnician(ctx context.Context, technicianID string)
}

// DirectoryIndexService pushes technician documents to the search provider
type DirectoryIndexService struct {
	search providers.TechnicianSearchProvider
	users  repositories.UserRepository
}

// NewDirectoryIndexService creates an indexer. A nil provider disables indexing.
func NewDirectoryIndexService(search providers.TechnicianSearchProvider, users repositories.UserRepository) *DirectoryIndexService {
	return &DirectoryIndexService{search: search, users: users}
}

// Enabled reports whether a search provider is configured
func (s *DirectoryIndexService) Enabled() bool {
	return s != nil && s.search != nil
}

// IndexTechnician upserts the technician's directory document
func (s *DirectoryIndexService) IndexTechnician(ctx context.Context, technician *entities.Technician) {
	if !s.Enabled() || technician == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	logger := observability.LoggerFromContext(ctx)
	name := ""
	if user, err := s.users.GetByID(ctx, technician.UserID); err == nil {
		name = user.Name
	} else {
		logger.Warn().Err(err).Str("technician_id", technician.ID).Msg("Indexing technician without owner name")
	}

	if err := s.search.Index(ctx, entities.NewDirectoryEntry(technician, name)); err != nil {
		logger.Warn().Err(err).Str("technician_id", technician.ID).Msg("Failed to index technician")
	}
}

// RemoveTechnician deletes the technician's directory document
func (s *DirectoryIndexService) RemoveTechnician(ctx context.Context, technicianID string) {
	if !s.Enabled() || technicianID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := s.search.Remove(ctx, technicianID); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("technician_id", technicianID).Msg("Failed to remove technician from index")
	}
}

// Reindex pushes every technician to the search provider in pages
func (s *DirectoryIndexService) Reindex(ctx context.Context, technicians repositories.TechnicianRepository, pageSize int) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	indexed := 0
	for offset := 0; ; offset += pageSize {
		page, err := technicians.List(ctx, repositories.TechnicianFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return indexed, err
		}
		if len(page) == 0 {
			return indexed, nil
		}

		ids := make([]string, 0, len(page))
		for _, t := range page {
			ids = append(ids, t.UserID)
		}
		owners, err := s.users.GetByIDs(ctx, ids)
		if err != nil {
			return indexed, err
		}

		for _, t := range page {
			name := ""
			if u, ok := owners[t.UserID]; ok {
				name = u.Name
			}
			if err := s.search.Index(ctx, entities.NewDirectoryEntry(t, name)); err != nil {
				return indexed, err
			}
			indexed++
		}
		if len(page) < pageSize {
			return indexed, nil
		}
	}
}
