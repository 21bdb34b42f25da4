// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Database defaults. The credentials are placeholders; deployments supply real values
// through the environment.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	DefaultDBDriver   = DriverMySQL
	DefaultDBHost     = "localhost"
	DefaultDBPort     = "3306"
	DefaultDBName     = "your_database_name"
	DefaultDBUser     = "your_database_user"
	DefaultDBPassword = "your_database_password"
	DefaultDBPath     = "ydl_jobs.db"
)

// Logging defaults
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Job table
const (
	JobsTable = "jobs"

	// MaxLogLength is the number of trailing characters kept by SetLog.
	MaxLogLength = 2500

	DefaultListLimit = 50
	DefaultKeepJobs  = 10
)

// Maintenance
const (
	DefaultPruneInterval = time.Hour
	DefaultOpTimeout     = 30 * time.Second
	SQLiteBusyTimeout    = 30000
)

// Timestamps are stored without a zone marker and are always UTC.
const (
	StoredTimeLayout  = "2006-01-02 15:04:05.000000"
	DisplayTimeLayout = "2006-01-02 15:04:05"
)
