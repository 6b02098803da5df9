package store

import (
	"context"
	"database/sql"
	"fmt"
)

// StoreContent appends an immutable content blob and returns its assigned
// id. Blobs are expected to be scrubbed by the ingestion pipeline before
// they arrive here; the PII guard applies to bindings, not content.
func (s *Store) StoreContent(ctx context.Context, sourceFile, text, noteDate, code string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO content (source_file, content, note_date, catcode)
		VALUES (?, ?, ?, ?)`,
		nullable(sourceFile), text, nullable(noteDate), nullable(code))
	if err != nil {
		return 0, fmt.Errorf("failed to store content: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read content id: %w", err)
	}
	return id, nil
}

// GetContent retrieves a content blob by id.
func (s *Store) GetContent(ctx context.Context, id int64) (*Content, error) {
	var c Content
	var sourceFile, noteDate, code sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_file, content, note_date, catcode, created_at
		FROM content WHERE id = ?`,
		id).Scan(&c.ID, &sourceFile, &c.Text, &noteDate, &code, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	c.SourceFile = fromNull(sourceFile)
	c.NoteDate = fromNull(noteDate)
	c.Catcode = fromNull(code)
	return &c, nil
}

// SearchContent finds blobs whose text contains term, newest note first.
func (s *Store) SearchContent(ctx context.Context, term string, limit int) ([]Content, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_file, content, note_date, catcode, created_at
		FROM content
		WHERE content LIKE '%' || ? || '%'
		ORDER BY note_date DESC, id DESC
		LIMIT ?`,
		term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search content: %w", err)
	}
	defer rows.Close()
	return scanContent(rows)
}

// ContentByCatcode returns blobs tagged into the given subtree prefix.
func (s *Store) ContentByCatcode(ctx context.Context, prefix string) ([]Content, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_file, content, note_date, catcode, created_at
		FROM content
		WHERE catcode LIKE ? || '%'
		ORDER BY id`,
		prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list content by catcode: %w", err)
	}
	defer rows.Close()
	return scanContent(rows)
}

// DeleteContentBySource bulk-deletes blobs under a catcode whose provenance
// label matches the LIKE pattern. Used by re-imports replacing old chunks.
// Returns the number of rows removed.
func (s *Store) DeleteContentBySource(ctx context.Context, code, sourcePattern string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM content WHERE catcode = ? AND source_file LIKE ?",
		code, sourcePattern)
	if err != nil {
		return 0, fmt.Errorf("failed to delete content by source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete count: %w", err)
	}
	return n, nil
}

func scanContent(rows *sql.Rows) ([]Content, error) {
	var out []Content
	for rows.Next() {
		var c Content
		var sourceFile, noteDate, code sql.NullString
		if err := rows.Scan(&c.ID, &sourceFile, &c.Text, &noteDate, &code, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		c.SourceFile = fromNull(sourceFile)
		c.NoteDate = fromNull(noteDate)
		c.Catcode = fromNull(code)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content: %w", err)
	}
	return out, nil
}
