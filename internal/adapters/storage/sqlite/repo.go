// Package sqlite persists the catalogue behind the app.Repository port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oriolvila/sudscat/internal/app"
	"github.com/oriolvila/sudscat/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Document names for the two single-row ordered collections. Category order
// and the definitions map are stored whole, matching their document shapes.
const (
	docCategoryOrder = "category_order"
	docDefinitions   = "activity_definitions"
)

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS suds_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location_tags_json TEXT NOT NULL DEFAULT '[]',
			display_order INTEGER,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogue_documents (
			name TEXT PRIMARY KEY,
			body_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			suds_type_id TEXT NOT NULL,
			category TEXT NOT NULL,
			name TEXT NOT NULL,
			applies INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT '',
			comment TEXT NOT NULL DEFAULT '',
			frequency TEXT NOT NULL DEFAULT '',
			contracts_json TEXT NOT NULL DEFAULT '[]',
			validation_status TEXT NOT NULL DEFAULT 'pending',
			validator_comment TEXT NOT NULL DEFAULT '',
			depends_on_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(suds_type_id) REFERENCES suds_types(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS contracts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(suds_type_id);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_type_category_name ON activities(suds_type_id, category, name);`,
		`CREATE INDEX IF NOT EXISTS idx_suds_types_display_order ON suds_types(display_order);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateSudsType creates an installation type row.
func (r *Repository) CreateSudsType(ctx context.Context, t domain.SudsType) error {
	tagsJSON, err := json.Marshal(t.LocationTags)
	if err != nil {
		return fmt.Errorf("encode location tags: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO suds_types(id, name, description, location_tags_json, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Description, string(tagsJSON), nullableOrder(t.Order), ts(t.CreatedAt), ts(t.UpdatedAt))
	return err
}

// UpdateSudsType updates state for the requested operation.
func (r *Repository) UpdateSudsType(ctx context.Context, t domain.SudsType) error {
	tagsJSON, err := json.Marshal(t.LocationTags)
	if err != nil {
		return fmt.Errorf("encode location tags: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE suds_types
		SET name = ?, description = ?, location_tags_json = ?, display_order = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.Description, string(tagsJSON), nullableOrder(t.Order), ts(t.UpdatedAt), t.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetSudsType returns one installation type.
func (r *Repository) GetSudsType(ctx context.Context, id string) (domain.SudsType, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, location_tags_json, display_order, created_at, updated_at
		FROM suds_types
		WHERE id = ?
	`, id)
	return scanSudsType(row)
}

// ListSudsTypes lists installation types. Rows without a stored order come
// last; the app layer assigns their provisional positions.
func (r *Repository) ListSudsTypes(ctx context.Context) ([]domain.SudsType, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, location_tags_json, display_order, created_at, updated_at
		FROM suds_types
		ORDER BY display_order IS NULL, display_order ASC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SudsType{}
	for rows.Next() {
		t, err := scanSudsType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteSudsType deletes one installation type. Activity rows follow via
// the foreign key cascade.
func (r *Repository) DeleteSudsType(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM suds_types WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// SetSudsTypeOrders applies one reorder batch inside a transaction: all
// order writes land or none do.
func (r *Repository) SetSudsTypeOrders(ctx context.Context, assignments []app.OrderAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range assignments {
		res, err := tx.ExecContext(ctx, `
			UPDATE suds_types SET display_order = ? WHERE id = ?
		`, a.Order, a.ID)
		if err != nil {
			return err
		}
		if err := translateNoRows(res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCategoryOrder returns the ordered category list document.
func (r *Repository) GetCategoryOrder(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.getDocument(ctx, docCategoryOrder, &names); err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// SetCategoryOrder rewrites the category list document as one write.
func (r *Repository) SetCategoryOrder(ctx context.Context, names []string) error {
	return r.setDocument(ctx, docCategoryOrder, names)
}

// GetDefinitions returns the shared definitions map document.
func (r *Repository) GetDefinitions(ctx context.Context) (domain.DefinitionMap, error) {
	var defs domain.DefinitionMap
	if err := r.getDocument(ctx, docDefinitions, &defs); err != nil {
		return nil, err
	}
	if defs == nil {
		defs = domain.DefinitionMap{}
	}
	return defs, nil
}

// SetDefinitions rewrites the whole definitions map document as one write.
func (r *Repository) SetDefinitions(ctx context.Context, defs domain.DefinitionMap) error {
	return r.setDocument(ctx, docDefinitions, defs)
}

// CreateActivity creates an activity record row.
func (r *Repository) CreateActivity(ctx context.Context, a domain.Activity) error {
	args, err := activityArgs(a)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertActivitySQL, args...)
	return err
}

// UpdateActivity updates state for the requested operation.
func (r *Repository) UpdateActivity(ctx context.Context, a domain.Activity) error {
	contractsJSON, dependsJSON, err := activityJSON(a)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE activities
		SET category = ?, name = ?, applies = ?, status = ?, comment = ?, frequency = ?,
			contracts_json = ?, validation_status = ?, validator_comment = ?, depends_on_json = ?, updated_at = ?
		WHERE id = ?
	`, a.Category, a.Name, boolInt(a.Applies), string(a.Status), a.Comment, a.Frequency,
		contractsJSON, string(a.ValidationStatus), a.ValidatorComment, dependsJSON, ts(a.UpdatedAt), a.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetActivity returns one activity record.
func (r *Repository) GetActivity(ctx context.Context, id string) (domain.Activity, error) {
	row := r.db.QueryRowContext(ctx, selectActivitySQL+` WHERE id = ?`, id)
	return scanActivity(row)
}

// ListActivities lists the records of one installation type.
func (r *Repository) ListActivities(ctx context.Context, sudsTypeID string) ([]domain.Activity, error) {
	rows, err := r.db.QueryContext(ctx, selectActivitySQL+` WHERE suds_type_id = ? ORDER BY created_at ASC, id ASC`, sudsTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// ListAllActivities lists every activity record.
func (r *Repository) ListAllActivities(ctx context.Context) ([]domain.Activity, error) {
	rows, err := r.db.QueryContext(ctx, selectActivitySQL+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// ApplyActivityChanges applies upserts and deletes as one transaction so
// cascading cleanup never half-lands.
func (r *Repository) ApplyActivityChanges(ctx context.Context, upserts []domain.Activity, deleteIDs []string) error {
	if len(upserts) == 0 && len(deleteIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activity batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range upserts {
		args, err := activityArgs(a)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertActivitySQL, args...); err != nil {
			return err
		}
	}
	for _, id := range deleteIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateContract creates a contract row.
func (r *Repository) CreateContract(ctx context.Context, c domain.Contract) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contracts(id, name, owner, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Owner, c.Description, ts(c.CreatedAt), ts(c.UpdatedAt))
	return err
}

// UpdateContract updates state for the requested operation.
func (r *Repository) UpdateContract(ctx context.Context, c domain.Contract) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts
		SET name = ?, owner = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Owner, c.Description, ts(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetContract returns one contract.
func (r *Repository) GetContract(ctx context.Context, id string) (domain.Contract, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, owner, description, created_at, updated_at
		FROM contracts
		WHERE id = ?
	`, id)
	return scanContract(row)
}

// ListContracts lists contracts.
func (r *Repository) ListContracts(ctx context.Context) ([]domain.Contract, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, owner, description, created_at, updated_at
		FROM contracts
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContract deletes one contract.
func (r *Repository) DeleteContract(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// getDocument reads one single-row JSON document. A missing row decodes to
// the zero value rather than an error.
func (r *Repository) getDocument(ctx context.Context, name string, out any) error {
	var body string
	err := r.db.QueryRowContext(ctx, `
		SELECT body_json FROM catalogue_documents WHERE name = ?
	`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode document %q: %w", name, err)
	}
	return nil
}

// setDocument rewrites one single-row JSON document as a single statement.
func (r *Repository) setDocument(ctx context.Context, name string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", name, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO catalogue_documents(name, body_json) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET body_json = excluded.body_json
	`, name, string(raw))
	return err
}

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

const selectActivitySQL = `
	SELECT id, suds_type_id, category, name, applies, status, comment, frequency,
		contracts_json, validation_status, validator_comment, depends_on_json, created_at, updated_at
	FROM activities`

const insertActivitySQL = `
	INSERT INTO activities(id, suds_type_id, category, name, applies, status, comment, frequency,
		contracts_json, validation_status, validator_comment, depends_on_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertActivitySQL = insertActivitySQL + `
	ON CONFLICT(id) DO UPDATE SET
		suds_type_id = excluded.suds_type_id,
		category = excluded.category,
		name = excluded.name,
		applies = excluded.applies,
		status = excluded.status,
		comment = excluded.comment,
		frequency = excluded.frequency,
		contracts_json = excluded.contracts_json,
		validation_status = excluded.validation_status,
		validator_comment = excluded.validator_comment,
		depends_on_json = excluded.depends_on_json,
		updated_at = excluded.updated_at`

// activityJSON encodes the two JSON-array fields of one record.
func activityJSON(a domain.Activity) (contracts string, dependsOn string, err error) {
	contractsRaw, err := json.Marshal(emptyIfNil(a.Contracts))
	if err != nil {
		return "", "", fmt.Errorf("encode contracts: %w", err)
	}
	dependsRaw, err := json.Marshal(emptyIfNil(a.DependsOn))
	if err != nil {
		return "", "", fmt.Errorf("encode depends_on: %w", err)
	}
	return string(contractsRaw), string(dependsRaw), nil
}

// activityArgs builds the insert/upsert argument list for one record.
func activityArgs(a domain.Activity) ([]any, error) {
	contractsJSON, dependsJSON, err := activityJSON(a)
	if err != nil {
		return nil, err
	}
	return []any{
		a.ID, a.SudsTypeID, a.Category, a.Name, boolInt(a.Applies), string(a.Status), a.Comment, a.Frequency,
		contractsJSON, string(a.ValidationStatus), a.ValidatorComment, dependsJSON, ts(a.CreatedAt), ts(a.UpdatedAt),
	}, nil
}

// scanSudsType handles scan suds type.
func scanSudsType(s scanner) (domain.SudsType, error) {
	var (
		t          domain.SudsType
		tagsRaw    string
		orderRaw   sql.NullInt64
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&t.ID, &t.Name, &t.Description, &tagsRaw, &orderRaw, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SudsType{}, app.ErrNotFound
		}
		return domain.SudsType{}, err
	}
	if err := json.Unmarshal([]byte(tagsRaw), &t.LocationTags); err != nil {
		return domain.SudsType{}, fmt.Errorf("decode location_tags_json: %w", err)
	}
	t.Order = domain.OrderUnassigned
	if orderRaw.Valid {
		t.Order = int(orderRaw.Int64)
	}
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	return t, nil
}

// scanActivity handles scan activity.
func scanActivity(s scanner) (domain.Activity, error) {
	var (
		a             domain.Activity
		appliesRaw    int
		statusRaw     string
		validationRaw string
		contractsRaw  string
		dependsRaw    string
		createdRaw    string
		updatedRaw    string
	)
	if err := s.Scan(
		&a.ID, &a.SudsTypeID, &a.Category, &a.Name, &appliesRaw, &statusRaw, &a.Comment, &a.Frequency,
		&contractsRaw, &validationRaw, &a.ValidatorComment, &dependsRaw, &createdRaw, &updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Activity{}, app.ErrNotFound
		}
		return domain.Activity{}, err
	}
	a.Applies = appliesRaw != 0
	a.Status = domain.ActivityStatus(statusRaw)
	a.ValidationStatus = domain.ValidationStatus(validationRaw)
	if a.ValidationStatus == "" {
		a.ValidationStatus = domain.ValidationPending
	}
	if err := json.Unmarshal([]byte(contractsRaw), &a.Contracts); err != nil {
		return domain.Activity{}, fmt.Errorf("decode contracts_json: %w", err)
	}
	if err := json.Unmarshal([]byte(dependsRaw), &a.DependsOn); err != nil {
		return domain.Activity{}, fmt.Errorf("decode depends_on_json: %w", err)
	}
	a.CreatedAt = parseTS(createdRaw)
	a.UpdatedAt = parseTS(updatedRaw)
	return a, nil
}

// scanContract handles scan contract.
func scanContract(s scanner) (domain.Contract, error) {
	var (
		c          domain.Contract
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Owner, &c.Description, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Contract{}, app.ErrNotFound
		}
		return domain.Contract{}, err
	}
	c.CreatedAt = parseTS(createdRaw)
	c.UpdatedAt = parseTS(updatedRaw)
	return c, nil
}

// collectActivities handles collect activities.
func collectActivities(rows *sql.Rows) ([]domain.Activity, error) {
	out := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// nullableOrder maps the unassigned order sentinel to NULL.
func nullableOrder(order int) any {
	if order == domain.OrderUnassigned {
		return nil
	}
	return order
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// boolInt handles bool int.
func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// emptyIfNil keeps JSON array fields as [] rather than null.
func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
