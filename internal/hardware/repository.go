package hardware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-access/internal/validation"
)

// Repository defines the interface for hardware device persistence.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// FindByName retrieves a device by name.
	// Returns ErrNotFound if no device has that name.
	FindByName(ctx context.Context, name string) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// ListByClass retrieves all devices of one class.
	ListByClass(ctx context.Context, class Class) ([]Device, error)

	// Create assigns an ID if needed and inserts the device.
	Create(ctx context.Context, dev *Device) error

	// Update writes the device if dev.Version matches the stored version.
	// Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, dev *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceInUse if another device refers to it.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
//
// Every write runs in one transaction: ID assignment, ValidateBeforeWrite,
// the row write, ValidateAfterWrite and the reference checks. Any failure
// rolls the whole write back.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const selectDevice = `
	SELECT id, name, class, enabled, spec, version, created_at, updated_at
	FROM hardware_devices`

// querierLookup adapts a Querier to NameLookup so validation sees the
// rows written earlier in the same transaction.
type querierLookup struct {
	q database.Querier
}

func (l querierLookup) FindByName(ctx context.Context, name string) (*Device, error) {
	return getOne(ctx, l.q, selectDevice+" WHERE name = ? LIMIT 1", name)
}

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	return getOne(ctx, r.db, selectDevice+" WHERE id = ?", id)
}

// FindByName retrieves a device by name.
func (r *SQLiteRepository) FindByName(ctx context.Context, name string) (*Device, error) {
	return querierLookup{r.db}.FindByName(ctx, name)
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return queryDevices(ctx, r.db, selectDevice+" ORDER BY name")
}

// ListByClass retrieves all devices of one class.
func (r *SQLiteRepository) ListByClass(ctx context.Context, class Class) ([]Device, error) {
	return queryDevices(ctx, r.db, selectDevice+" WHERE class = ? ORDER BY name", string(class))
}

// Create inserts a new device. On success dev carries its ID, version and
// timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, dev *Device) error {
	row := dev.Clone()
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	now := r.now()
	row.Version = 1
	row.CreatedAt = now
	row.UpdatedAt = now

	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := ValidateBeforeWrite(ctx, querierLookup{tx}, row); err != nil {
			return err
		}
		specJSON, err := marshalSpec(row)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO hardware_devices (id, name, class, enabled, gpio_id, spec, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID,
			row.Name,
			string(row.Class()),
			boolToInt(row.Enabled),
			nullableString(row.gpioRef()),
			specJSON,
			row.Version,
			row.CreatedAt.Format(time.RFC3339Nano),
			row.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return mapWriteError(err, "inserting device", errMissingGPIO)
		}
		return afterWrite(ctx, tx, row)
	})
	if err != nil {
		return err
	}

	*dev = *row
	return nil
}

// Update writes dev if its version is current. On success dev.Version is
// incremented.
func (r *SQLiteRepository) Update(ctx context.Context, dev *Device) error {
	row := dev.Clone()
	row.UpdatedAt = r.now()

	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		current, err := getOne(ctx, tx, selectDevice+" WHERE id = ?", row.ID)
		if err != nil {
			return err
		}
		if current.Version != row.Version {
			return fmt.Errorf("%w: device %s is at version %d, update was based on %d",
				ErrVersionConflict, row.ID, current.Version, row.Version)
		}
		if current.Class() != row.Class() {
			return validation.New(PointerClass, "device class cannot change", ErrInvalidDevice)
		}
		row.CreatedAt = current.CreatedAt

		if err := ValidateBeforeWrite(ctx, querierLookup{tx}, row); err != nil {
			return err
		}
		specJSON, err := marshalSpec(row)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE hardware_devices
			SET name = ?, enabled = ?, gpio_id = ?, spec = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			row.Name,
			boolToInt(row.Enabled),
			nullableString(row.gpioRef()),
			specJSON,
			row.UpdatedAt.Format(time.RFC3339Nano),
			row.ID,
			row.Version,
		)
		if err != nil {
			return mapWriteError(err, "updating device", errMissingGPIO)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: device %s changed during update", ErrVersionConflict, row.ID)
		}
		row.Version++
		return afterWrite(ctx, tx, row)
	})
	if err != nil {
		return err
	}

	*dev = *row
	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		all, err := queryDevices(ctx, tx, selectDevice)
		if err != nil {
			return err
		}
		for i := range all {
			for _, ref := range all[i].References() {
				if ref == id {
					return fmt.Errorf("%w: referenced by %s", ErrDeviceInUse, all[i].Name)
				}
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM hardware_devices WHERE id = ?", id)
		if err != nil {
			return mapWriteError(err, "deleting device", ErrDeviceInUse)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// afterWrite is the post-write phase: model checks, then every reference
// must name an existing device of the expected class.
func afterWrite(ctx context.Context, q database.Querier, dev *Device) error {
	if err := ValidateAfterWrite(dev); err != nil {
		return err
	}
	var errs validation.List
	for id, want := range referenceClasses(dev) {
		var class string
		err := q.QueryRowContext(ctx, "SELECT class FROM hardware_devices WHERE id = ?", id).Scan(&class)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			errs = append(errs, validation.New(pointerSpec+"references",
				fmt.Sprintf("device %s does not exist", id), ErrInvalidReference))
		case err != nil:
			return fmt.Errorf("checking reference %s: %w", id, err)
		case Class(class) != want:
			errs = append(errs, validation.New(pointerSpec+"references",
				fmt.Sprintf("device %s is a %s, want %s", id, class, want), ErrInvalidReference))
		}
	}
	return errs.Err()
}

func marshalSpec(dev *Device) (string, error) {
	if dev.Spec == nil {
		return "", validation.New(PointerClass, "device class is required", ErrInvalidDevice)
	}
	b, err := json.Marshal(dev.Spec)
	if err != nil {
		return "", fmt.Errorf("marshalling spec: %w", err)
	}
	return string(b), nil
}

// errMissingGPIO is reported when the gpio_id foreign key rejects a write.
var errMissingGPIO = validation.New(pointerSpec+"gpio_id", "GPIO device does not exist", ErrInvalidReference)

// mapWriteError turns SQLite constraint failures into domain errors.
// fkErr is what a foreign key failure means for this statement.
func mapWriteError(err error, op string, fkErr error) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			if errors.Is(fkErr, ErrDeviceInUse) {
				return fmt.Errorf("%w: %s", ErrDeviceInUse, op)
			}
			return fkErr
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return validation.New("data/id", "device id already exists", ErrInvalidDevice)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func getOne(ctx context.Context, q database.Querier, query string, args ...any) (*Device, error) {
	dev, err := scanDevice(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return dev, nil
}

func queryDevices(ctx context.Context, q database.Querier, query string, args ...any) ([]Device, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *dev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var class, specJSON, createdAt, updatedAt string
	var enabled int

	if err := scanner.Scan(&d.ID, &d.Name, &class, &enabled, &specJSON, &d.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Enabled = enabled != 0

	spec, err := DecodeSpec(Class(class), []byte(specJSON))
	if err != nil {
		return nil, err
	}
	d.Spec = spec

	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &d, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
