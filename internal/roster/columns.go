package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnMap names the CSV headers that carry each rider field.
// Header matching is exact.
type ColumnMap struct {
	Street      string `yaml:"street"`
	City        string `yaml:"city"`
	State       string `yaml:"state"`
	Zip         string `yaml:"zip"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	MobilePhone string `yaml:"mobile_phone"`
	HomePhone   string `yaml:"home_phone"`
	WorkPhone   string `yaml:"work_phone"`
	Category    string `yaml:"category"`
	RiderCount  string `yaml:"rider_count"`
	Notes       string `yaml:"notes"`
	Role        string `yaml:"role"`
}

// DefaultColumns matches the roster export the router was built around
func DefaultColumns() ColumnMap {
	return ColumnMap{
		Street:      "Home Address Street",
		City:        "Home Address City",
		State:       "Home Address State",
		Zip:         "Home Address Zip",
		FirstName:   "First Name",
		LastName:    "Last Name",
		MobilePhone: "Mobile Phone Number",
		HomePhone:   "Home Phone Number",
		WorkPhone:   "Work Phone Number",
		Category:    "Which service do you need a ride to?",
		RiderCount:  "Number of Riders",
		Notes:       "Please list any physical needs that would affect transportation. If you don't have any, type NONE.",
		Role:        "Role",
	}
}

// Required returns the address headers that must be present
func (c ColumnMap) Required() []string {
	return []string{c.Street, c.City, c.State, c.Zip}
}

// LoadColumns reads a YAML column map. Fields left out of the file keep their defaults.
func LoadColumns(path string) (ColumnMap, error) {
	cols := DefaultColumns()

	data, err := os.ReadFile(path)
	if err != nil {
		return cols, fmt.Errorf("failed to read column map: %w", err)
	}

	if err := yaml.Unmarshal(data, &cols); err != nil {
		return cols, fmt.Errorf("failed to parse column map: %w", err)
	}

	for _, name := range cols.Required() {
		if name == "" {
			return cols, fmt.Errorf("column map: address columns must not be empty")
		}
	}

	return cols, nil
}
