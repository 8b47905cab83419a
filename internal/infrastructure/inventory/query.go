package inventory

import (
	"fmt"
	"strings"

	"intent-orchestrator/internal/domain/device"
)

var searchableFields = []string{"name", "deviceType", "softwareVersion"}

// BuildSearchQuery turns a free-text term into a Lucene query. Plain
// identifiers match on name only; anything else is escaped and matched
// against every searchable field.
func BuildSearchQuery(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}

	if isSimpleTerm(term) {
		return "name:" + term
	}

	escaped := strings.NewReplacer(`\`, `\\`, " ", `\ `, `"`, `\"`).Replace(term)

	clauses := make([]string, len(searchableFields))
	for i, field := range searchableFields {
		clauses[i] = fmt.Sprintf("%s:%s", field, escaped)
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

func isSimpleTerm(term string) bool {
	for _, r := range term {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// FilterLocally keeps devices whose name, serial, type, version or uid
// contains term, ignoring case.
func FilterLocally(devices []device.Device, term string) []device.Device {
	needle := strings.ToLower(strings.TrimSpace(term))
	matched := make([]device.Device, 0)

	for _, d := range devices {
		for _, field := range []string{d.Name, d.Serial, d.DeviceType, d.SoftwareVersion, d.UID} {
			if strings.Contains(strings.ToLower(field), needle) {
				matched = append(matched, d)
				break
			}
		}
	}
	return matched
}
