package roster

import (
	"fmt"
	"strings"
)

// SchemaError is returned when required address columns are missing from the input
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required address columns not found: %s", strings.Join(e.Missing, ", "))
}
