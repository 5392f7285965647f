package gormstore

import (
	"context"

	"gorm.io/gorm/clause"

	"sentinel/internal/retrieval"
)

var (
	_ retrieval.Source      = (*GormStore)(nil)
	_ retrieval.ConceptSink = (*GormStore)(nil)
)

// UpsertConcept keeps one row per content id.
func (s *GormStore) UpsertConcept(ctx context.Context, c retrieval.Concept) error {
	now := s.now().UnixMilli()
	m := conceptModel{
		ID:            c.ID,
		Source:        c.Source,
		Title:         c.Title,
		Body:          c.Text,
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source", "title", "body", "updated_at"}),
	}).Create(&m).Error
}

func (s *GormStore) ListConcepts(ctx context.Context) ([]retrieval.Concept, error) {
	var rows []conceptModel
	if err := s.db.WithContext(ctx).Order("title ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]retrieval.Concept, 0, len(rows))
	for _, r := range rows {
		out = append(out, retrieval.Concept{ID: r.ID, Source: r.Source, Title: r.Title, Text: r.Body})
	}
	return out, nil
}
