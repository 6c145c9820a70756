package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Create devices table matching the schema
	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			controller_id TEXT NOT NULL,
			type TEXT NOT NULL,
			capabilities TEXT NOT NULL DEFAULT '[]',
			config TEXT NOT NULL DEFAULT '{}',
			state TEXT NOT NULL DEFAULT '{}',
			state_updated_at TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_devices_controller_id ON devices(controller_id);
		CREATE INDEX idx_devices_type ON devices(type);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testDevice creates a device for testing.
func testDevice(id, name string) *Device {
	return &Device{
		ID:           id,
		Name:         name,
		ControllerID: "zc-001",
		Type:         TypeLight,
		Capabilities: []Capability{CapOnOff, CapDim},
		Config:       Config{},
		State:        State{"state": "off"},
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	d := testDevice("light-01", "Kitchen Light")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "light-01")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Name != "Kitchen Light" {
		t.Errorf("Name = %q, want %q", got.Name, "Kitchen Light")
	}
	if got.ControllerID != "zc-001" {
		t.Errorf("ControllerID = %q, want zc-001", got.ControllerID)
	}
	if got.Type != TypeLight {
		t.Errorf("Type = %q, want light", got.Type)
	}
	if len(got.Capabilities) != 2 {
		t.Errorf("Capabilities = %v, want 2 entries", got.Capabilities)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestSQLiteRepository_CreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	d := testDevice("light-01", "Kitchen Light")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Create(ctx, testDevice("light-01", "Other")); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("duplicate Create() error = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	if _, err := repo.GetByID(context.Background(), "ghost"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_ListByController(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	a := testDevice("light-01", "A")
	b := testDevice("light-02", "B")
	b.ControllerID = "zc-002"

	for _, d := range []*Device{a, b} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.ID, err)
		}
	}

	devices, err := repo.ListByController(ctx, "zc-001")
	if err != nil {
		t.Fatalf("ListByController() error = %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "light-01" {
		t.Errorf("ListByController() = %v, want [light-01]", devices)
	}
}

func TestSQLiteRepository_ListByType(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	light := testDevice("light-01", "Lamp")
	sw := testDevice("sw-01", "Switch")
	sw.Type = TypeSwitch
	sw.Config = Config{"buttons": 4, "mode": "momentary"}

	for _, d := range []*Device{light, sw} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.ID, err)
		}
	}

	switches, err := repo.ListByType(ctx, TypeSwitch)
	if err != nil {
		t.Fatalf("ListByType() error = %v", err)
	}
	if len(switches) != 1 || switches[0].ID != "sw-01" {
		t.Errorf("ListByType(switch) = %v, want [sw-01]", switches)
	}
}

func TestSQLiteRepository_UpdateState_Merges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	d := testDevice("light-01", "Lamp")
	d.State = State{"state": "on", "brightness": float64(200)}
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.UpdateState(ctx, "light-01", State{"brightness": float64(64)}); err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "light-01")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.State["state"] != "on" {
		t.Error("partial state update must preserve other keys")
	}
	if got.State["brightness"] != float64(64) {
		t.Errorf("brightness = %v, want 64", got.State["brightness"])
	}
	if got.StateUpdatedAt == nil {
		t.Error("StateUpdatedAt should be set after UpdateState")
	}
}

func TestSQLiteRepository_UpdateState_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	err := repo.UpdateState(context.Background(), "ghost", State{"state": "on"})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("UpdateState() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	d := testDevice("light-01", "Lamp")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	before := d.UpdatedAt
	time.Sleep(10 * time.Millisecond)

	d.Name = "Desk Lamp"
	if err := repo.Update(ctx, d); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "light-01")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Desk Lamp" {
		t.Errorf("Name = %q, want Desk Lamp", got.Name)
	}
	if !got.UpdatedAt.After(before.Add(-time.Second)) {
		t.Error("UpdatedAt should advance on update")
	}
}

func TestSQLiteRepository_DeleteAndDeleteAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, testDevice(id, "Device "+id)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "a"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() error = %v, want ErrDeviceNotFound", err)
	}

	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("List() after DeleteAll = %d devices, want 0", len(devices))
	}
}
