package store

import (
	"fmt"

	"github.com/cesargomez89/ydljobs/internal/constants"
)

// JobColumns is the expected shape of the jobs table, in creation order.
var JobColumns = []string{"id", "name", "status", "log", "format", "last_update", "type", "url", "pid"}

type dialect struct {
	driver      string
	setup       []string
	schema      []string
	tableExists string
	// cutoffQuery selects the newest last_update values exactly as stored.
	cutoffQuery string
	compact     string
}

var sqliteDialect = dialect{
	driver: constants.DriverSQLite,
	setup: []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", constants.SQLiteBusyTimeout),
	},
	schema: []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			status INTEGER NOT NULL,
			log TEXT,
			format TEXT,
			last_update DATETIME DEFAULT CURRENT_TIMESTAMP,
			type INTEGER NOT NULL,
			url TEXT,
			pid INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_last_update ON jobs(last_update)`,
	},
	tableExists: `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'jobs'`,
	// the driver parses DATETIME columns; the cast keeps the stored text so the
	// cutoff compares equal to its own row
	cutoffQuery: `SELECT CAST(last_update AS TEXT) AS last_update FROM jobs ORDER BY last_update DESC LIMIT ?`,
	compact:     "VACUUM",
}

var mysqlDialect = dialect{
	driver: constants.DriverMySQL,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name TEXT NOT NULL,
			status INT NOT NULL,
			log LONGTEXT,
			format TEXT,
			last_update DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6),
			type INT NOT NULL,
			url LONGTEXT,
			pid INT,
			INDEX idx_jobs_last_update (last_update)
		)`,
	},
	tableExists: `SHOW TABLES LIKE 'jobs'`,
	cutoffQuery: `SELECT last_update FROM jobs ORDER BY last_update DESC LIMIT ?`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case constants.DriverSQLite:
		return sqliteDialect, nil
	case constants.DriverMySQL:
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}
