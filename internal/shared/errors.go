package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Storage errors
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrInvalidMode        = fmt.Errorf("invalid storage mode")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Dataset round-trip errors
	ErrImportFailed = fmt.Errorf("import failed")
	ErrExportFailed = fmt.Errorf("export failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
