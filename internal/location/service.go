package location

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"backend-umaklink/internal/db"
	"backend-umaklink/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound    = errors.New("location not found")
	ErrInvalidTree = errors.New("invalid location hierarchy")
)

// parentKinds lists the kinds a node of each kind may hang under.
var parentKinds = map[string][]string{
	KindBuilding: nil,
	KindFloor:    {KindBuilding},
	KindRoom:     {KindBuilding, KindFloor},
}

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, input Location) (Location, error) {
	allowed, ok := parentKinds[input.Kind]
	if !ok || input.Name == "" {
		return Location{}, fmt.Errorf("%w: name and a known kind are required", ErrInvalidTree)
	}
	if len(allowed) == 0 && input.ParentID != "" {
		return Location{}, fmt.Errorf("%w: %s cannot have a parent", ErrInvalidTree, input.Kind)
	}
	if len(allowed) > 0 {
		if input.ParentID == "" {
			return Location{}, fmt.Errorf("%w: %s needs a parent", ErrInvalidTree, input.Kind)
		}
		parent, err := s.Get(ctx, input.ParentID)
		if err != nil {
			return Location{}, err
		}
		if !contains(allowed, parent.Kind) {
			return Location{}, fmt.Errorf("%w: %s cannot be inside a %s", ErrInvalidTree, input.Kind, parent.Kind)
		}
	}

	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO locations (id, name, kind, parent_id, location)
		VALUES ($1,$2,$3, NULLIF($4,'')::uuid, ST_SetSRID(ST_MakePoint($5,$6), 4326)::geography)
		RETURNING created_at
	`, input.ID, input.Name, input.Kind, input.ParentID, input.Lng, input.Lat)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Location{}, err
	}
	return input, nil
}

func (s *Service) Get(ctx context.Context, id string) (Location, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id::text, name, kind, COALESCE(parent_id::text,''), ST_Y(location::geometry), ST_X(location::geometry), created_at
		FROM locations WHERE id::text=$1
	`, id)
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Kind, &l.ParentID, &l.Lat, &l.Lng, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, ErrNotFound
	}
	return l, err
}

// Children lists the direct children of parentID, or the buildings when
// parentID is empty.
func (s *Service) Children(ctx context.Context, parentID string) ([]Location, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, name, kind, COALESCE(parent_id::text,''), ST_Y(location::geometry), ST_X(location::geometry), created_at
		FROM locations
		WHERE COALESCE(parent_id::text,'') = $1
		ORDER BY name
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLocations(rows)
}

// Path returns the names from the building down to id. The result feeds the
// search composer's location levels.
func (s *Service) Path(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id, name, parent_id, 0 AS depth FROM locations WHERE id::text = $1
			UNION ALL
			SELECT l.id, l.name, l.parent_id, c.depth + 1
			FROM locations l JOIN chain c ON l.id = c.parent_id
			WHERE c.depth < 3
		)
		SELECT name FROM chain ORDER BY depth DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNotFound
	}
	return names, nil
}

// Nearby returns locations within radiusKm, closest first.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]Location, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, name, kind, COALESCE(parent_id::text,''), ST_Y(location::geometry), ST_X(location::geometry), created_at
		FROM locations
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
	`, lng, lat, radiusKm*1000)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := scanLocations(rows)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].DistanceKm = geo.HaversineKm(lat, lng, results[i].Lat, results[i].Lng)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	return results, nil
}

func scanLocations(rows pgx.Rows) ([]Location, error) {
	results := []Location{}
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Kind, &l.ParentID, &l.Lat, &l.Lng, &l.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, l)
	}
	return results, rows.Err()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
