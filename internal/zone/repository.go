package zone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-access/internal/validation"
)

// Repository defines persistence operations for zones and doors.
type Repository interface {
	// GetByID retrieves a zone with its children, parents and doors loaded.
	// Returns ErrNotFound if the zone does not exist.
	GetByID(ctx context.Context, id int64) (*Zone, error)

	// List retrieves every zone ordered by ID, graph links loaded.
	List(ctx context.Context) ([]*Zone, error)

	// LoadGraph retrieves every zone keyed by ID with Children, Parents and
	// Doors pointing into the same graph.
	LoadGraph(ctx context.Context) (map[int64]*Zone, error)

	// Create inserts the zone and its child and door links, then validates
	// the resulting topology. Only the IDs of Children and Doors are read.
	Create(ctx context.Context, z *Zone) error

	// Update rewrites the zone and its links if z.Version is current.
	// Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, z *Zone) error

	// Delete removes a zone. Links to and from it are dropped.
	Delete(ctx context.Context, id int64) error

	// CreateDoor inserts a door.
	CreateDoor(ctx context.Context, d *Door) error

	// GetDoor retrieves a door by ID.
	GetDoor(ctx context.Context, id int64) (*Door, error)

	// ListDoors retrieves every door ordered by ID.
	ListDoors(ctx context.Context) ([]Door, error)

	// DeleteDoor removes a door and detaches it from every zone.
	DeleteDoor(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed zone repository.
//
// Parameters:
//   - db: Open SQLite connection with the zone migrations applied
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// GetByID retrieves a zone with its graph links loaded.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Zone, error) {
	graph, err := loadGraph(ctx, r.db)
	if err != nil {
		return nil, err
	}
	z, ok := graph[id]
	if !ok {
		return nil, ErrNotFound
	}
	return z, nil
}

// List retrieves every zone ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Zone, error) {
	graph, err := loadGraph(ctx, r.db)
	if err != nil {
		return nil, err
	}
	zones := make([]*Zone, 0, len(graph))
	for _, z := range graph {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })
	return zones, nil
}

// LoadGraph retrieves the whole zone graph.
func (r *SQLiteRepository) LoadGraph(ctx context.Context) (map[int64]*Zone, error) {
	return loadGraph(ctx, r.db)
}

// Create inserts a zone. On success z carries its ID, version and timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, z *Zone) error {
	if z == nil {
		return fmt.Errorf("zone is required")
	}
	if err := validateFields(z); err != nil {
		return err
	}
	now := r.now()

	var id int64
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO zones (alias, description, type, version, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?)`,
			z.Alias,
			z.Description,
			string(z.Type),
			now.Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("inserting zone: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("reading zone id: %w", err)
		}
		if err := writeLinks(ctx, tx, id, z); err != nil {
			return err
		}
		return validateStored(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	z.ID = id
	z.Version = 1
	z.CreatedAt = now
	z.UpdatedAt = now
	return nil
}

// Update rewrites a zone. On success z.Version is incremented.
func (r *SQLiteRepository) Update(ctx context.Context, z *Zone) error {
	if z == nil {
		return fmt.Errorf("zone is required")
	}
	if err := validateFields(z); err != nil {
		return err
	}
	now := r.now()

	var createdAt time.Time
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		var version int
		var created string
		err := tx.QueryRowContext(ctx, "SELECT version, created_at FROM zones WHERE id = ?", z.ID).
			Scan(&version, &created)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying zone: %w", err)
		}
		if version != z.Version {
			return fmt.Errorf("%w: zone %d is at version %d, update was based on %d",
				ErrVersionConflict, z.ID, version, z.Version)
		}
		if createdAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return fmt.Errorf("parsing created_at: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE zones
			SET alias = ?, description = ?, type = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			z.Alias,
			z.Description,
			string(z.Type),
			now.Format(time.RFC3339Nano),
			z.ID,
			z.Version,
		)
		if err != nil {
			return fmt.Errorf("updating zone: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: zone %d changed during update", ErrVersionConflict, z.ID)
		}

		for _, stmt := range []string{
			"DELETE FROM zone_children WHERE parent_id = ?",
			"DELETE FROM zone_doors WHERE zone_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, z.ID); err != nil {
				return fmt.Errorf("clearing zone links: %w", err)
			}
		}
		if err := writeLinks(ctx, tx, z.ID, z); err != nil {
			return err
		}
		return validateStored(ctx, tx, z.ID)
	})
	if err != nil {
		return err
	}

	z.Version++
	z.CreatedAt = createdAt
	z.UpdatedAt = now
	return nil
}

// Delete removes a zone by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM zones WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting zone: %w", err)
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

// CreateDoor inserts a door. On success d carries its ID and version.
func (r *SQLiteRepository) CreateDoor(ctx context.Context, d *Door) error {
	if d == nil {
		return fmt.Errorf("door is required")
	}
	if err := validateDoor(d); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO doors (alias, description, access_point_id, version)
		VALUES (?, ?, ?, 1)`,
		d.Alias,
		d.Description,
		nullableString(d.AccessPointID),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return validation.New(PointerAccessPoint,
				fmt.Sprintf("device %s does not exist", d.AccessPointID), ErrUnknownReference)
		}
		return fmt.Errorf("inserting door: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading door id: %w", err)
	}
	d.ID = id
	d.Version = 1
	return nil
}

// GetDoor retrieves a door by ID.
func (r *SQLiteRepository) GetDoor(ctx context.Context, id int64) (*Door, error) {
	doors, err := queryDoors(ctx, r.db, selectDoor+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(doors) == 0 {
		return nil, ErrNotFound
	}
	return &doors[0], nil
}

// ListDoors retrieves every door.
func (r *SQLiteRepository) ListDoors(ctx context.Context) ([]Door, error) {
	return queryDoors(ctx, r.db, selectDoor+" ORDER BY id")
}

// DeleteDoor removes a door by ID.
func (r *SQLiteRepository) DeleteDoor(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM doors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting door: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// writeLinks stores the ordered child and door lists of zone id.
func writeLinks(ctx context.Context, tx *sql.Tx, id int64, z *Zone) error {
	for pos, child := range z.Children {
		if child == nil {
			continue
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO zone_children (parent_id, child_id, position) VALUES (?, ?, ?)",
			id, child.ID, pos)
		switch {
		case isForeignKeyError(err):
			return validation.New(PointerChildren,
				fmt.Sprintf("zone %d does not exist", child.ID), ErrUnknownReference)
		case isPrimaryKeyError(err):
			return validation.New(PointerChildren,
				fmt.Sprintf("zone %d is listed more than once", child.ID), ErrCycle)
		case err != nil:
			return fmt.Errorf("linking child zone: %w", err)
		}
	}

	for pos, door := range z.Doors {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO zone_doors (zone_id, door_id, position) VALUES (?, ?, ?)",
			id, door.ID, pos)
		switch {
		case isForeignKeyError(err):
			return validation.New(PointerDoors,
				fmt.Sprintf("door %d does not exist", door.ID), ErrUnknownReference)
		case isPrimaryKeyError(err):
			return validation.New(PointerDoors,
				fmt.Sprintf("door %d is listed more than once", door.ID), ErrUnknownReference)
		case err != nil:
			return fmt.Errorf("linking door: %w", err)
		}
	}
	return nil
}

// validateStored reloads the graph as the transaction sees it and validates
// the subtree rooted at id.
func validateStored(ctx context.Context, q database.Querier, id int64) error {
	graph, err := loadGraph(ctx, q)
	if err != nil {
		return err
	}
	return Validate(graph[id])
}

const selectDoor = `SELECT id, alias, description, access_point_id, version FROM doors`

func loadGraph(ctx context.Context, q database.Querier) (map[int64]*Zone, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, alias, description, type, version, created_at, updated_at FROM zones")
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	graph := make(map[int64]*Zone)
	for rows.Next() {
		var z Zone
		var typ, createdAt, updatedAt string
		if err := rows.Scan(&z.ID, &z.Alias, &z.Description, &typ, &z.Version, &createdAt, &updatedAt); err != nil {
			rows.Close() //nolint:errcheck // Scan error takes precedence
			return nil, fmt.Errorf("scanning zone: %w", err)
		}
		z.Type = Type(typ)
		z.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // Written by this package
		z.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // Written by this package
		graph[z.ID] = &z
	}
	if err := closeRows(rows, "zones"); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx,
		"SELECT parent_id, child_id FROM zone_children ORDER BY parent_id, position")
	if err != nil {
		return nil, fmt.Errorf("querying zone children: %w", err)
	}
	for rows.Next() {
		var parentID, childID int64
		if err := rows.Scan(&parentID, &childID); err != nil {
			rows.Close() //nolint:errcheck // Scan error takes precedence
			return nil, fmt.Errorf("scanning zone child: %w", err)
		}
		parent, child := graph[parentID], graph[childID]
		if parent == nil || child == nil {
			continue
		}
		parent.Children = append(parent.Children, child)
		child.Parents = append(child.Parents, parent)
	}
	if err := closeRows(rows, "zone children"); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT zd.zone_id, d.id, d.alias, d.description, d.access_point_id, d.version
		FROM zone_doors zd JOIN doors d ON d.id = zd.door_id
		ORDER BY zd.zone_id, zd.position`)
	if err != nil {
		return nil, fmt.Errorf("querying zone doors: %w", err)
	}
	for rows.Next() {
		var zoneID int64
		var d Door
		var accessPoint sql.NullString
		if err := rows.Scan(&zoneID, &d.ID, &d.Alias, &d.Description, &accessPoint, &d.Version); err != nil {
			rows.Close() //nolint:errcheck // Scan error takes precedence
			return nil, fmt.Errorf("scanning zone door: %w", err)
		}
		d.AccessPointID = accessPoint.String
		if z := graph[zoneID]; z != nil {
			z.Doors = append(z.Doors, d)
		}
	}
	if err := closeRows(rows, "zone doors"); err != nil {
		return nil, err
	}
	return graph, nil
}

func queryDoors(ctx context.Context, q database.Querier, query string, args ...any) ([]Door, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying doors: %w", err)
	}
	var doors []Door
	for rows.Next() {
		var d Door
		var accessPoint sql.NullString
		if err := rows.Scan(&d.ID, &d.Alias, &d.Description, &accessPoint, &d.Version); err != nil {
			rows.Close() //nolint:errcheck // Scan error takes precedence
			return nil, fmt.Errorf("scanning door: %w", err)
		}
		d.AccessPointID = accessPoint.String
		doors = append(doors, d)
	}
	if err := closeRows(rows, "doors"); err != nil {
		return nil, err
	}
	return doors, nil
}

func closeRows(rows *sql.Rows, what string) error {
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck // Iteration error takes precedence
		return fmt.Errorf("iterating %s: %w", what, err)
	}
	return rows.Close()
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func isPrimaryKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
