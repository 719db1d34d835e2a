package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// GetNote devuelve la nota del slug; found=false si no existe.
func (s *SQLStorage) GetNote(ctx context.Context, slug string) (domain.Note, bool, error) {
	n := domain.Note{Slug: slug}
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT content, is_public FROM notes WHERE slug = ?`), slug,
	).Scan(&n.Content, &n.IsPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Note{Slug: slug}, false, nil
	}
	if err != nil {
		return domain.Note{}, false, fmt.Errorf("storage.GetNote: %w", err)
	}
	return n, true, nil
}

// SaveNote crea o reemplaza la nota del slug.
func (s *SQLStorage) SaveNote(ctx context.Context, n domain.Note) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO notes (slug, content, is_public, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			content    = excluded.content,
			is_public  = excluded.is_public,
			updated_at = excluded.updated_at`),
		n.Slug, n.Content, n.IsPublic, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveNote: %w", err)
	}
	return nil
}
