// Package migrations embeds the schema for both supported databases.
// PostgreSQL migrations live at the root; SQLite ones under sqlite/.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed *.sql sqlite/*.sql
var FS embed.FS

// Dialect names the SQL flavour a migration set is written for.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) dir() string {
	if d == SQLite {
		return "sqlite"
	}
	return "."
}

// UpFiles lists the *.up.sql files for a dialect in apply order.
func UpFiles(d Dialect) ([]string, error) {
	entries, err := fs.ReadDir(FS, d.dir())
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Apply executes every up migration for the dialect. All statements are
// written with IF NOT EXISTS so Apply can run on every start.
func Apply(ctx context.Context, db *sql.DB, d Dialect) error {
	files, err := UpFiles(d)
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := fs.ReadFile(FS, path.Join(d.dir(), file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}
	return nil
}
