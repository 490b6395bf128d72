package search

import (
	"testing"

	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchParams_Defaults(t *testing.T) {
	p := buildSearchParams(providers.TechnicianSearchParams{})

	assert.Equal(t, "*", *p.Q)
	assert.Equal(t, queryFields, *p.QueryBy)
	assert.Equal(t, defaultSearchLimit, *p.PerPage)
	assert.Nil(t, p.FilterBy)
}

func TestBuildSearchParams_Filters(t *testing.T) {
	p := buildSearchParams(providers.TechnicianSearchParams{
		Query:        " plumber ",
		City:         "Yaba`",
		VerifiedOnly: true,
		Limit:        500,
	})

	assert.Equal(t, "plumber", *p.Q)
	assert.Equal(t, maxSearchLimit, *p.PerPage)
	require.NotNil(t, p.FilterBy)
	assert.Equal(t, "city:=`Yaba` && is_verified:=true", *p.FilterBy)
}

func TestDocumentFor(t *testing.T) {
	doc := documentFor(entities.DirectoryEntry{
		ID:            "tech-1",
		Name:          "James Plumbing",
		Title:         "Master Plumber",
		City:          "Yaba",
		Skills:        []string{"Pipes", "Leaks"},
		Categories:    []string{"Plumbing"},
		AverageRating: 4.5,
		ReviewCount:   2,
		IsVerified:    true,
	})

	assert.Equal(t, "tech-1", doc["id"])
	assert.Equal(t, []string{"Pipes", "Leaks"}, doc["skills"])
	assert.Equal(t, 4.5, doc["average_rating"])
	assert.Equal(t, true, doc["is_verified"])
}
