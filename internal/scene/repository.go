package scene

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines persistence operations for scenes and button
// assignments. This abstraction allows for different implementations
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a scene by its unique identifier.
	// Returns ErrSceneNotFound if the scene does not exist.
	GetByID(ctx context.Context, id string) (*Scene, error)

	// List retrieves all scenes ordered by name.
	List(ctx context.Context) ([]Scene, error)

	// Create inserts a new scene. An empty ID is generated.
	// Returns ErrSceneExists if the ID is already taken.
	Create(ctx context.Context, s *Scene) error

	// Update modifies an existing scene.
	// Returns ErrSceneNotFound if the scene does not exist.
	Update(ctx context.Context, s *Scene) error

	// Delete removes a scene and its button assignments.
	// Returns ErrSceneNotFound if the scene does not exist.
	Delete(ctx context.Context, id string) error

	// Assign maps a switch button to a scene, overwriting any previous
	// assignment for that button.
	// Returns ErrSceneNotFound if the scene does not exist.
	Assign(ctx context.Context, deviceID string, button int, sceneID string) error

	// Unassign removes a button's scene mapping.
	// Returns ErrNoAssignment if none exists.
	Unassign(ctx context.Context, deviceID string, button int) error

	// GetAssignment retrieves the scene assigned to a button.
	// Returns ErrNoAssignment if none exists.
	GetAssignment(ctx context.Context, deviceID string, button int) (*Assignment, error)

	// ListAssignments retrieves all button assignments.
	ListAssignments(ctx context.Context) ([]Assignment, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed scene repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a scene by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Scene, error) {
	query := `SELECT id, name, actions, created_at, updated_at FROM scenes WHERE id = ?`

	s, err := scanScene(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("querying scene by id: %w", err)
	}
	return s, nil
}

// List retrieves all scenes ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Scene, error) {
	query := `SELECT id, name, actions, created_at, updated_at FROM scenes ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		s, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scene: %w", err)
		}
		scenes = append(scenes, *s)
	}
	return scenes, rows.Err()
}

// Create inserts a new scene.
func (r *SQLiteRepository) Create(ctx context.Context, s *Scene) error {
	if err := Validate(s); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = GenerateID()
	}

	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	actions, err := json.Marshal(s.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}

	query := `INSERT INTO scenes (id, name, actions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.Name, string(actions),
		s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSceneExists
		}
		return fmt.Errorf("inserting scene: %w", err)
	}
	return nil
}

// Update modifies an existing scene.
func (r *SQLiteRepository) Update(ctx context.Context, s *Scene) error {
	if err := Validate(s); err != nil {
		return err
	}

	s.UpdatedAt = time.Now().UTC()

	actions, err := json.Marshal(s.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}

	query := `UPDATE scenes SET name = ?, actions = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		s.Name, string(actions), s.UpdatedAt.Format(time.RFC3339), s.ID)
	if err != nil {
		return fmt.Errorf("updating scene: %w", err)
	}
	return requireRow(result, ErrSceneNotFound)
}

// Delete removes a scene. Button assignments referencing it are removed
// in the same transaction so a stale mapping can't outlive its scene.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scene_assignments WHERE scene_id = ?`, id); err != nil {
		return fmt.Errorf("deleting assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting scene: %w", err)
	}
	if err := requireRow(result, ErrSceneNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// Assign maps a switch button to a scene.
func (r *SQLiteRepository) Assign(ctx context.Context, deviceID string, button int, sceneID string) error {
	// Verify the scene exists rather than relying on FK enforcement,
	// which depends on the connection's pragma settings.
	if _, err := r.GetByID(ctx, sceneID); err != nil {
		return err
	}

	query := `INSERT INTO scene_assignments (device_id, button, scene_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id, button) DO UPDATE SET scene_id = excluded.scene_id`

	_, err := r.db.ExecContext(ctx, query,
		deviceID, button, sceneID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("assigning scene: %w", err)
	}
	return nil
}

// Unassign removes a button's scene mapping.
func (r *SQLiteRepository) Unassign(ctx context.Context, deviceID string, button int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM scene_assignments WHERE device_id = ? AND button = ?`,
		deviceID, button)
	if err != nil {
		return fmt.Errorf("unassigning scene: %w", err)
	}
	return requireRow(result, ErrNoAssignment)
}

// GetAssignment retrieves the scene assigned to a button.
func (r *SQLiteRepository) GetAssignment(ctx context.Context, deviceID string, button int) (*Assignment, error) {
	query := `SELECT device_id, button, scene_id, created_at FROM scene_assignments
		WHERE device_id = ? AND button = ?`

	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, deviceID, button))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoAssignment
		}
		return nil, fmt.Errorf("querying assignment: %w", err)
	}
	return a, nil
}

// ListAssignments retrieves all button assignments.
func (r *SQLiteRepository) ListAssignments(ctx context.Context) ([]Assignment, error) {
	query := `SELECT device_id, button, scene_id, created_at FROM scene_assignments
		ORDER BY device_id, button`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(row rowScanner) (*Scene, error) {
	var s Scene
	var actions, createdAt, updatedAt string

	if err := row.Scan(&s.ID, &s.Name, &actions, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(actions), &s.Actions); err != nil {
		return nil, fmt.Errorf("unmarshalling actions: %w", err)
	}
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func scanAssignment(row rowScanner) (*Assignment, error) {
	var a Assignment
	var createdAt string

	if err := row.Scan(&a.DeviceID, &a.Button, &a.SceneID, &createdAt); err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// parseTime parses stored timestamps, tolerating both RFC3339 and
// SQLite's CURRENT_TIMESTAMP format.
func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	return time.Time{}
}

// requireRow converts a zero-rows-affected result into notFound.
func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isUniqueConstraintError checks if an error is a SQLite unique
// constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
