// Package constants provides shared constants used throughout the casesync codebase.
// This includes timeouts, retry budgets, file permissions, and the fixed strings
// shared between the reconciler and the change report.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the per-call timeout for remote store requests
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// SyncTimeout is the default ceiling for one full synchronization run
	SyncTimeout = 2 * time.Hour

	// PurgeWaitTimeout is how long a purge waits on the store's delete job
	PurgeWaitTimeout = 5 * time.Minute

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 30 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like session tokens (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// MaxRetries is the retry budget for transient remote store failures
	MaxRetries = 3

	// LastNamePrefixLength is how many characters of a last name are matched
	// when looking for an existing contact
	LastNamePrefixLength = 4

	// DeleteBatchSize is the number of ids sent per purge request
	DeleteBatchSize = 200

	// WriteBufferSize is the default buffer size for the change report
	WriteBufferSize = 4096
)

// Reconciliation constants
const (
	// BirthdateWindow is the tolerance for birthdate drift (about three months)
	BirthdateWindow = 90 * 24 * time.Hour

	// PicklistDelimiter joins multi-value picklist entries
	PicklistDelimiter = ";"

	// UnknownLabel is the picklist value used when nothing matches
	UnknownLabel = "Unknown"

	// SiblingSeparator joins the names of other members of a group
	SiblingSeparator = ", "

	// TouchSuffix is appended to the last-touched timestamp on every scraped record
	TouchSuffix = "Copied in by web spider"
)

// Format constants
const (
	// TimeFormatDate is the date format used for listing date fields
	TimeFormatDate = "2006-01-02"

	// TimeFormatTouch is the timestamp format of the last-touched field
	TimeFormatTouch = "01/02/2006 15:04"

	// TimeFormatFilename is the format used in generated report filenames
	TimeFormatFilename = "2006-01-02T15-04-05"

	// ReportPrefix is the file name prefix of change reports
	ReportPrefix = "Report_"
)

// Remote store defaults
const (
	// DefaultAPIVersion is the REST API version used when none is configured
	DefaultAPIVersion = "v58.0"

	// DefaultSQLitePath is the default location of the local store database
	DefaultSQLitePath = "casesync.db"

	// DefaultReportDir is where change reports are written when not configured
	DefaultReportDir = "."
)
