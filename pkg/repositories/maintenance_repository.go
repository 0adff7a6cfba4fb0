package repositories

import (
	"context"
	"fmt"
	"strings"
)

// DirectoryTables lists every directory table, children before parents.
// The waitlist is not directory data and is never cleared.
var DirectoryTables = []string{
	"reviews",
	"preceptor_programs",
	"preceptor_sites",
	"preceptor_schools",
	"preceptors",
	"school_programs",
	"experience_types",
	"rotation_types",
	"program_types",
	"practice_sites",
	"schools",
}

// MaintenanceRepository performs whole-directory operations used by the seeder.
type MaintenanceRepository interface {
	// ClearDirectory empties every directory table in one statement.
	ClearDirectory(ctx context.Context) error
	// Counts returns the row count of each directory table.
	Counts(ctx context.Context) (map[string]int, error)
}

type maintenanceRepository struct{}

// NewMaintenanceRepository creates a new MaintenanceRepository.
func NewMaintenanceRepository() MaintenanceRepository {
	return &maintenanceRepository{}
}

var _ MaintenanceRepository = (*maintenanceRepository)(nil)

func (r *maintenanceRepository) ClearDirectory(ctx context.Context) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	if _, err := c.Exec(ctx, `TRUNCATE TABLE `+strings.Join(DirectoryTables, ", ")); err != nil {
		return fmt.Errorf("failed to clear directory tables: %w", err)
	}
	return nil
}

func (r *maintenanceRepository) Counts(ctx context.Context) (map[string]int, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(DirectoryTables))
	for i, table := range DirectoryTables {
		parts[i] = fmt.Sprintf(`SELECT '%s', count(*) FROM %s`, table, table)
	}

	rows, err := c.Query(ctx, strings.Join(parts, " UNION ALL "))
	if err != nil {
		return nil, fmt.Errorf("failed to count directory tables: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(DirectoryTables))
	for rows.Next() {
		var table string
		var n int
		if err := rows.Scan(&table, &n); err != nil {
			return nil, fmt.Errorf("failed to scan table count: %w", err)
		}
		counts[table] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table counts: %w", err)
	}
	return counts, nil
}
