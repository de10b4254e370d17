package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrNoDomainConfigured = fmt.Errorf("no catch-all domain configured")

	// Wordlist errors
	ErrSource           = fmt.Errorf("wordlist source error")
	ErrWordlistTooSmall = fmt.Errorf("wordlist too small")
	ErrUnknownLocale    = fmt.Errorf("unknown wordlist selection")
	ErrNoWordlist       = fmt.Errorf("unable to load any wordlist")

	// Generation errors
	ErrGenerationExhausted = fmt.Errorf("unable to generate unique email after maximum retries")

	// Storage errors
	ErrStorage         = fmt.Errorf("storage error")
	ErrNotFound        = fmt.Errorf("not found")
	ErrDuplicateRecord = fmt.Errorf("duplicate usage record")

	// Backup errors
	ErrNothingToExport     = fmt.Errorf("no data to export")
	ErrInvalidBackupFormat = fmt.Errorf("invalid backup file format")
	ErrRemoteBackup        = fmt.Errorf("remote backup failed")
	ErrBackupNotConfigured = fmt.Errorf("GitHub backup not configured")
	ErrVersionConflict     = fmt.Errorf("remote revision conflict")
	ErrUnsupportedDocument = fmt.Errorf("unsupported backup document version")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrInvalidDomain   = fmt.Errorf("%w: invalid domain", ErrValidation)
	ErrInvalidURL      = fmt.Errorf("%w: invalid URL", ErrValidation)
	ErrInvalidEmail    = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
