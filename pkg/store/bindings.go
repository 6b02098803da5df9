package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coboxhq/abra/pkg/pii"
)

// WriteBinding persists a typed fact after running the PII guard on its
// target_ref. A guard match returns ErrPIIRejected and writes nothing; the
// rejection is logged, and callers treat it as a reportable per-item event,
// not a batch abort. Permanence defaults to CURRENT.
func (s *Store) WriteBinding(ctx context.Context, b Binding) (int64, error) {
	if b.Scope == "" || b.Name == "" || b.Relationship == "" || b.TargetType == "" || b.TargetRef == "" {
		return 0, fmt.Errorf("binding requires scope, name, relationship, target_type, target_ref")
	}
	if b.Permanence == "" {
		b.Permanence = PermCurrent
	}

	if s.guard.Classify(b.TargetRef) == pii.SuspectedPII {
		s.log.Warn("binding rejected, target_ref matches a PII pattern",
			"scope", b.Scope,
			"name", b.Name,
			"relationship", b.Relationship)
		return 0, ErrPIIRejected
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bindings
			(scope, name, relationship, target_type, target_ref, qualifier, permanence, source_date, catcode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Scope, b.Name, b.Relationship, b.TargetType, b.TargetRef,
		nullable(b.Qualifier), b.Permanence, nullable(b.SourceDate), nullable(b.Catcode))
	if err != nil {
		return 0, fmt.Errorf("failed to write binding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read binding id: %w", err)
	}
	return id, nil
}

// FindName returns distinct (name, relationship, target_ref) facts whose
// name starts with namePrefix within a scope, ordered by name. Ingestion
// uses this to detect existing identities before creating duplicates.
func (s *Store) FindName(ctx context.Context, scope, namePrefix string) ([]NameFact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT name, relationship, target_ref
		FROM bindings
		WHERE scope = ? AND name LIKE ? || '%'
		ORDER BY name`,
		scope, namePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to find names: %w", err)
	}
	defer rows.Close()

	var facts []NameFact
	for rows.Next() {
		var f NameFact
		if err := rows.Scan(&f.Name, &f.Relationship, &f.TargetRef); err != nil {
			return nil, fmt.Errorf("failed to scan name fact: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating name facts: %w", err)
	}
	return facts, nil
}

// About returns every binding for one subject, oldest first.
func (s *Store) About(ctx context.Context, scope, name string) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, bindingColumns+`
		WHERE scope = ? AND name = ?
		ORDER BY id`,
		scope, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query bindings: %w", err)
	}
	defer rows.Close()
	return scanBindings(rows)
}

// Who finds subjects whose ABOUT qualifiers mention term.
func (s *Store) Who(ctx context.Context, scope, term string) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, bindingColumns+`
		WHERE scope = ? AND relationship = 'ABOUT'
		  AND qualifier LIKE '%' || ? || '%'
		ORDER BY name`,
		scope, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query qualifiers: %w", err)
	}
	defer rows.Close()
	return scanBindings(rows)
}

// Names lists distinct subject names in a scope, optionally prefix-filtered.
func (s *Store) Names(ctx context.Context, scope, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT name FROM bindings
		WHERE scope = ? AND name LIKE ? || '%'
		ORDER BY name`,
		scope, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating names: %w", err)
	}
	return names, nil
}

// BindingsInRange returns bindings whose source_date falls in [from, to],
// both inclusive, YYYY-MM-DD or YYYY-MM prefixes.
func (s *Store) BindingsInRange(ctx context.Context, scope, from, to string) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, bindingColumns+`
		WHERE scope = ? AND source_date IS NOT NULL
		  AND source_date >= ? AND source_date <= ? || 'z'
		ORDER BY source_date, name`,
		scope, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query bindings by date: %w", err)
	}
	defer rows.Close()
	return scanBindings(rows)
}

// DeleteBindings bulk-deletes every binding for one scope/name subject.
// Returns the number of rows removed.
func (s *Store) DeleteBindings(ctx context.Context, scope, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM bindings WHERE scope = ? AND name = ?", scope, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bindings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete count: %w", err)
	}
	return n, nil
}

const bindingColumns = `
	SELECT id, scope, name, relationship, target_type, target_ref,
	       qualifier, permanence, source_date, catcode, created_at
	FROM bindings`

func scanBindings(rows *sql.Rows) ([]Binding, error) {
	var out []Binding
	for rows.Next() {
		var b Binding
		var qualifier, sourceDate, code sql.NullString
		if err := rows.Scan(&b.ID, &b.Scope, &b.Name, &b.Relationship, &b.TargetType,
			&b.TargetRef, &qualifier, &b.Permanence, &sourceDate, &code, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		b.Qualifier = fromNull(qualifier)
		b.SourceDate = fromNull(sourceDate)
		b.Catcode = fromNull(code)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bindings: %w", err)
	}
	return out, nil
}
