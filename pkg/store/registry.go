package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coboxhq/abra/pkg/catcode"
)

// RegisterCatcode registers a position in the namespace. Idempotent:
// re-registering an existing catcode updates only its label.
//
// Non-root codes must name an existing parent and extend it by exactly one
// segment. Roots pass an empty parent.
func (s *Store) RegisterCatcode(ctx context.Context, code, parent, label string) error {
	if !catcode.Valid(code) {
		return fmt.Errorf("%w: %q", ErrBadCatcode, code)
	}
	if parent == "" && len(code) != catcode.SegmentWidth {
		return fmt.Errorf("%w: %q is not a single-segment root", ErrBadCatcode, code)
	}
	if parent != "" {
		if !catcode.IsChildOf(code, parent) {
			return fmt.Errorf("%w: %q is not %q plus one segment", ErrBadCatcode, code, parent)
		}
		var one int
		err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM catcode_registry WHERE catcode = ?", parent).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %q", ErrParentNotFound, parent)
		}
		if err != nil {
			return fmt.Errorf("failed to check parent catcode: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catcode_registry (catcode, parent_catcode, label)
		VALUES (?, ?, ?)
		ON CONFLICT(catcode) DO UPDATE SET label = excluded.label`,
		code, nullable(parent), label)
	if err != nil {
		return fmt.Errorf("failed to register catcode: %w", err)
	}
	return nil
}

// FindCatcodes returns every registered node whose catcode starts with
// prefix, in lexicographic order. The string prefix is the tree: this is
// how subtree queries are expressed.
func (s *Store) FindCatcodes(ctx context.Context, prefix string) ([]CatcodeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT catcode, parent_catcode, label, created_at
		FROM catcode_registry
		WHERE catcode LIKE ? || '%'
		ORDER BY catcode`,
		prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to find catcodes: %w", err)
	}
	defer rows.Close()

	var entries []CatcodeEntry
	for rows.Next() {
		var e CatcodeEntry
		var parent sql.NullString
		if err := rows.Scan(&e.Catcode, &parent, &e.Label, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catcode: %w", err)
		}
		e.Parent = fromNull(parent)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catcodes: %w", err)
	}
	return entries, nil
}

// NextCatcode computes the next free child slot under parent without
// registering it. First slot is parent+"01"; subsequent slots increment the
// greatest existing child suffix in base-36. Returns
// catcode.ErrSpaceExhausted once all 1296 slots are taken.
//
// Callers that intend to claim the slot should use AllocateCatcode, which
// holds the per-parent lock across compute and registration.
func (s *Store) NextCatcode(ctx context.Context, parent string) (string, error) {
	lock := s.parentLock(parent)
	lock.Lock()
	defer lock.Unlock()
	return s.nextCatcodeLocked(ctx, parent)
}

// AllocateCatcode claims the next free child slot under parent and registers
// it with the given label, serialized per parent so concurrent allocations
// cannot produce the same slot.
func (s *Store) AllocateCatcode(ctx context.Context, parent, label string) (string, error) {
	lock := s.parentLock(parent)
	lock.Lock()
	defer lock.Unlock()

	code, err := s.nextCatcodeLocked(ctx, parent)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catcode_registry (catcode, parent_catcode, label)
		VALUES (?, ?, ?)
		ON CONFLICT(catcode) DO UPDATE SET label = excluded.label`,
		code, nullable(parent), label)
	if err != nil {
		return "", fmt.Errorf("failed to register allocated catcode: %w", err)
	}
	return code, nil
}

func (s *Store) nextCatcodeLocked(ctx context.Context, parent string) (string, error) {
	if parent != "" {
		var one int
		err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM catcode_registry WHERE catcode = ?", parent).Scan(&one)
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%w: %q", ErrParentNotFound, parent)
		}
		if err != nil {
			return "", fmt.Errorf("failed to check parent catcode: %w", err)
		}
	}

	// Roots are stored with NULL parent_catcode, so the comparison must be
	// IS, not =, for the empty-parent case to match them.
	var last string
	err := s.db.QueryRowContext(ctx, `
		SELECT catcode FROM catcode_registry
		WHERE parent_catcode IS ?
		ORDER BY catcode DESC LIMIT 1`,
		nullable(parent)).Scan(&last)
	if err == sql.ErrNoRows {
		return catcode.FirstChild(parent), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find last child catcode: %w", err)
	}

	seg, err := catcode.ChildSegment(last, parent)
	if err != nil {
		return "", fmt.Errorf("registry holds malformed child %q under %q: %w", last, parent, err)
	}
	next, err := catcode.NextSegment(seg)
	if err != nil {
		return "", fmt.Errorf("catcode space under %q: %w", parent, err)
	}
	return parent + next, nil
}

// DeleteCatcode removes a catcode and cascades: all bindings and content
// whose catcode starts with the target prefix, then the registry subtree.
// Runs as a single transaction so governance state never ends up orphaned.
func (s *Store) DeleteCatcode(ctx context.Context, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cascade delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM bindings WHERE catcode LIKE ? || '%'", code); err != nil {
		return fmt.Errorf("failed to delete bindings under %q: %w", code, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM content WHERE catcode LIKE ? || '%'", code); err != nil {
		return fmt.Errorf("failed to delete content under %q: %w", code, err)
	}
	// Subtree nodes share the prefix; deleting by prefix inside the
	// transaction does not depend on the FK pragma being set on the
	// connection that happens to run it.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM catcode_registry WHERE catcode LIKE ? || '%'", code); err != nil {
		return fmt.Errorf("failed to delete catcode subtree %q: %w", code, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cascade delete: %w", err)
	}
	return nil
}
