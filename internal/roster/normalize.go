package roster

import (
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"rider-router/internal/models"
)

var nonRiderRoles = map[string]bool{
	"driver":     true,
	"drivers":    true,
	"assistant":  true,
	"assistants": true,
}

var placeholderNotes = map[string]bool{
	"":     true,
	"none": true,
	"n/a":  true,
	"na":   true,
	"no":   true,
	"nope": true,
	"-":    true,
}

// Result is the outcome of normalizing a roster
type Result struct {
	Stops    []models.Stop
	Dropped  int // rows missing an address component
	Excluded int // driver/assistant rows
	Merged   int // rows folded into an earlier stop with the same address
}

// Normalize converts roster rows into deduplicated stops.
// Stops come back in the order their address first appears.
func Normalize(table *Table, cols ColumnMap) (*Result, error) {
	var missing []string
	for _, name := range cols.Required() {
		if !table.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		log.Printf("[ROSTER] Schema error: missing=%v", missing)
		return nil, &SchemaError{Missing: missing}
	}

	result := &Result{}
	byKey := make(map[string]int)

	for _, row := range table.Rows {
		addr := models.Address{
			Street: row[cols.Street],
			City:   row[cols.City],
			State:  row[cols.State],
			Zip:    row[cols.Zip],
		}
		if !addr.Complete() {
			result.Dropped++
			continue
		}

		if isNonRider(row[cols.Role]) {
			result.Excluded++
			continue
		}

		stop := stopFromRow(row, cols, addr)
		key := NormalizeAddress(addr.FullAddress())

		if idx, ok := byKey[key]; ok {
			mergeStop(&result.Stops[idx], &stop)
			result.Merged++
			continue
		}

		byKey[key] = len(result.Stops)
		result.Stops = append(result.Stops, stop)
	}

	log.Printf("[ROSTER] Normalized roster: rows=%d stops=%d dropped=%d excluded=%d merged=%d",
		len(table.Rows), len(result.Stops), result.Dropped, result.Excluded, result.Merged)
	return result, nil
}

func stopFromRow(row Row, cols ColumnMap, addr models.Address) models.Stop {
	name := strings.TrimSpace(strings.TrimSpace(row[cols.FirstName]) + " " + strings.TrimSpace(row[cols.LastName]))

	var phones []string
	for _, col := range []string{cols.MobilePhone, cols.HomePhone, cols.WorkPhone} {
		if p := NormalizePhone(row[col]); p != "" {
			phones = appendDistinct(phones, p)
		}
	}

	return models.Stop{
		ID:         uuid.NewString(),
		Name:       name,
		Phone:      strings.Join(phones, ", "),
		Notes:      cleanNotes(row[cols.Notes]),
		Address:    addr,
		Category:   strings.Join(uniqueTokens(strings.Fields(row[cols.Category])), " "),
		RiderCount: parseRiderCount(row[cols.RiderCount]),
		Validation: models.Validation{State: models.ValidationUnvalidated},
	}
}

// mergeStop folds src into dst: rider counts add, metadata is set-unioned
func mergeStop(dst, src *models.Stop) {
	dst.RiderCount += src.RiderCount
	dst.Name = joinDistinct(dst.Name, src.Name, " & ")
	dst.Phone = joinDistinct(dst.Phone, src.Phone, ", ")
	dst.Notes = joinDistinct(dst.Notes, src.Notes, "; ")
	dst.Category = MergeCategories(dst.Category, src.Category)
}

// MergeCategories unions two space-delimited category lists, keeping first-seen order
func MergeCategories(a, b string) string {
	return strings.Join(uniqueTokens(append(strings.Fields(a), strings.Fields(b)...)), " ")
}

func joinDistinct(existing, incoming, sep string) string {
	var parts []string
	for _, p := range strings.Split(existing, sep) {
		if p = strings.TrimSpace(p); p != "" {
			parts = appendDistinct(parts, p)
		}
	}
	for _, p := range strings.Split(incoming, sep) {
		if p = strings.TrimSpace(p); p != "" {
			parts = appendDistinct(parts, p)
		}
	}
	return strings.Join(parts, sep)
}

func appendDistinct(list []string, v string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}

func uniqueTokens(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		out = appendDistinct(out, t)
	}
	return out
}

func cleanNotes(raw string) string {
	notes := strings.TrimSpace(raw)
	key := strings.ToLower(strings.TrimRight(notes, ".!"))
	if placeholderNotes[strings.TrimSpace(key)] {
		return ""
	}
	return notes
}

func parseRiderCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func isNonRider(role string) bool {
	words := strings.FieldsFunc(strings.ToLower(role), func(r rune) bool {
		return (r < 'a' || r > 'z')
	})
	for _, w := range words {
		if nonRiderRoles[w] {
			return true
		}
	}
	return false
}
