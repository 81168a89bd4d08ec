package sqlstore

import "errors"

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("stockrelay sql: db is required")
	// ErrUnsupportedDialect is returned for dialects other than mysql and postgres.
	ErrUnsupportedDialect = errors.New("stockrelay sql: unsupported dialect")
	// ErrTableNameRequired is returned when a table name is empty.
	ErrTableNameRequired = errors.New("stockrelay sql: table name is required")
	// ErrInvalidTableName is returned when a table name has disallowed characters.
	ErrInvalidTableName = errors.New("stockrelay sql: invalid table name")
	// ErrInvalidMapping is returned when a supplier field mapping cannot be decoded.
	ErrInvalidMapping = errors.New("stockrelay sql: invalid field mapping")
	// ErrInvalidStatus is returned when an audit entry carries an unknown status.
	ErrInvalidStatus = errors.New("stockrelay sql: invalid audit status")
	// ErrCleanupBeforeRequired is returned when cleanup cutoff is missing.
	ErrCleanupBeforeRequired = errors.New("stockrelay sql: cleanup before time is required")
	// ErrCleanupLimitInvalid is returned when cleanup limit is negative.
	ErrCleanupLimitInvalid = errors.New("stockrelay sql: cleanup limit must be non-negative")
	// ErrCleanupRetentionInvalid is returned when cleanup retention is not positive.
	ErrCleanupRetentionInvalid = errors.New("stockrelay sql: cleanup retention must be positive")
)
