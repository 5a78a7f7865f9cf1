package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ExportEntities Phase = iota
	ExportAssemble
	ImportParse
	ImportValidate
	ImportWrite
	ImportComplete
	ImportFailed
	RecurringRun
)

func (p Phase) String() string {
	switch p {
	case ExportEntities:
		return "export_entities"
	case ExportAssemble:
		return "export_assemble"
	case ImportParse:
		return "import_parse"
	case ImportValidate:
		return "import_validate"
	case ImportWrite:
		return "import_write"
	case ImportComplete:
		return "import_complete"
	case ImportFailed:
		return "import_failed"
	case RecurringRun:
		return "recurring_run"
	default:
		return ""
	}
}

func exportEntityUpdate(step, total int, table string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportEntities,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exported %s (%d records)", step, total, table, count),
	}
}

func exportFailedUpdate(step, total int, table string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportEntities,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, table, err),
	}
}

func exportAssembleUpdate(files, records int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAssemble,
		Step:    files,
		Total:   files,
		Message: fmt.Sprintf("Assembled %d files (%d records)", files, records),
	}
}

func importParseUpdate(step, total int, table string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportParse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Parsed %s (%d records)", step, total, table, count),
	}
}

func importValidateUpdate(step, total int, table string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportValidate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Validating %s...", step, total, table),
	}
}

func importWriteUpdate(step, total int, table string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportWrite,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Importing %s...", step, total, table),
	}
}

func importCompleteUpdate(imported, skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportComplete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Import complete: %d imported, %d skipped", imported, skipped),
	}
}

func importFailedUpdate(errCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportFailed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Import failed with %d errors", errCount),
	}
}

func recurringUpdate(step, total int, description string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecurringRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Materializing: %s", step, total, description),
	}
}
