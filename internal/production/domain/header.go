package production

import (
	"regexp"
	"sort"
	"strings"
)

// Role is the logical meaning of a log column.
type Role string

const (
	RoleTimestamp       Role = "timestamp"
	RoleCumulativeYield Role = "cumulativeYield"
	RoleDeviceID        Role = "deviceId"
	RoleSiteName        Role = "siteName"
)

const (
	// HeaderScanRows is the detection window for streams without a known header row.
	HeaderScanRows = 10
	// PreferredHeaderIndex is the row FusionSolar exports put their header on (Excel row 4).
	PreferredHeaderIndex = 3

	headerMinScore = 3
)

var requiredRoles = []Role{RoleTimestamp, RoleCumulativeYield, RoleDeviceID}

// headerKeywords are scored per row during header detection.
var headerKeywords = []string{"start time", "total yield", "manageobject"}

// HeaderRule assigns a role to a label when Match returns true.
// Labels are passed lower-cased and trimmed.
type HeaderRule struct {
	Role  Role
	Match func(label string) bool
}

var (
	startTimeRe  = regexp.MustCompile(`start\s*time`)
	totalYieldRe = regexp.MustCompile(`total\s*yield`)
)

// DefaultHeaderRules returns the built-in rule table.
func DefaultHeaderRules() []HeaderRule {
	return []HeaderRule{
		{Role: RoleTimestamp, Match: func(l string) bool {
			return (strings.Contains(l, "start") && strings.Contains(l, "time")) || startTimeRe.MatchString(l)
		}},
		{Role: RoleTimestamp, Match: containsAny("采集时间", "开始时间")},
		{Role: RoleCumulativeYield, Match: func(l string) bool {
			return (strings.Contains(l, "total") && strings.Contains(l, "yield")) || totalYieldRe.MatchString(l)
		}},
		{Role: RoleCumulativeYield, Match: containsAny("累计发电量")},
		{Role: RoleDeviceID, Match: containsAny("manageobject", "inverter", "device name", "设备名称")},
		{Role: RoleSiteName, Match: containsAny("site name", "plant name", "电站名称")},
	}
}

// SynonymRules builds contains-rules from a role -> synonyms table.
// Roles are emitted in a fixed order so the result is deterministic.
func SynonymRules(synonyms map[Role][]string) []HeaderRule {
	var rules []HeaderRule
	for _, role := range []Role{RoleTimestamp, RoleCumulativeYield, RoleDeviceID, RoleSiteName} {
		words := make([]string, 0, len(synonyms[role]))
		for _, w := range synonyms[role] {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				words = append(words, w)
			}
		}
		if len(words) == 0 {
			continue
		}
		rules = append(rules, HeaderRule{Role: role, Match: containsAny(words...)})
	}
	return rules
}

func containsAny(words ...string) func(string) bool {
	return func(label string) bool {
		for _, w := range words {
			if strings.Contains(label, w) {
				return true
			}
		}
		return false
	}
}

// ColumnRoleMap maps each role to a column index, -1 when unresolved.
type ColumnRoleMap struct {
	Timestamp       int
	CumulativeYield int
	DeviceID        int
	SiteName        int
}

// Index returns the column of a role.
func (m ColumnRoleMap) Index(role Role) int {
	switch role {
	case RoleTimestamp:
		return m.Timestamp
	case RoleCumulativeYield:
		return m.CumulativeYield
	case RoleDeviceID:
		return m.DeviceID
	case RoleSiteName:
		return m.SiteName
	default:
		return -1
	}
}

func (m *ColumnRoleMap) set(role Role, idx int) {
	switch role {
	case RoleTimestamp:
		m.Timestamp = idx
	case RoleCumulativeYield:
		m.CumulativeYield = idx
	case RoleDeviceID:
		m.DeviceID = idx
	case RoleSiteName:
		m.SiteName = idx
	}
}

// Validate checks the required roles are resolved.
func (m ColumnRoleMap) Validate() error {
	var missing []Role
	for _, role := range requiredRoles {
		if m.Index(role) < 0 {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// HeaderResolver applies a rule table to header rows.
type HeaderResolver struct {
	rules []HeaderRule
}

// NewHeaderResolver constructs a resolver; extra rules are evaluated after the defaults.
func NewHeaderResolver(extra ...HeaderRule) *HeaderResolver {
	rules := DefaultHeaderRules()
	rules = append(rules, extra...)
	return &HeaderResolver{rules: rules}
}

// NewRuleResolver constructs a resolver over exactly the given rules.
func NewRuleResolver(rules ...HeaderRule) *HeaderResolver {
	return &HeaderResolver{rules: rules}
}

func (r *HeaderResolver) tableOrDefault() []HeaderRule {
	if r == nil || len(r.rules) == 0 {
		return DefaultHeaderRules()
	}
	return r.rules
}

// rolesOf returns every role a label satisfies, in rule order.
func (r *HeaderResolver) rolesOf(label string) []Role {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return nil
	}
	var roles []Role
	for _, rule := range r.tableOrDefault() {
		if rule.Match(l) {
			roles = append(roles, rule.Role)
		}
	}
	return roles
}

// ResolveColumns resolves a positional header. First matching column wins per role.
func (r *HeaderResolver) ResolveColumns(header RawRow) ColumnRoleMap {
	m := ColumnRoleMap{Timestamp: -1, CumulativeYield: -1, DeviceID: -1, SiteName: -1}
	for idx, label := range header {
		for _, role := range r.rolesOf(label) {
			if m.Index(role) < 0 {
				m.set(role, idx)
			}
		}
	}
	return m
}

// ResolveKeys resolves an object-keyed sample row. Keys are visited in sorted
// order so the choice among several matching keys is stable.
func (r *HeaderResolver) ResolveKeys(sample map[string]string) map[Role]string {
	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return r.ResolveOrderedKeys(keys)
}

// ResolveOrderedKeys resolves keys in the given order; the first key matching
// a role wins.
func (r *HeaderResolver) ResolveOrderedKeys(keys []string) map[Role]string {
	out := make(map[Role]string, 4)
	for _, k := range keys {
		for _, role := range r.rolesOf(k) {
			if _, ok := out[role]; !ok {
				out[role] = k
			}
		}
	}
	return out
}

// DetectHeader finds the header row among the first HeaderScanRows rows using
// the built-in rules.
func DetectHeader(rows []RawRow, preferredIndex int) (int, error) {
	return NewHeaderResolver().DetectHeader(rows, preferredIndex)
}

// DetectHeader finds the header row among the first HeaderScanRows rows.
// The preferred index wins when it qualifies, otherwise the first qualifying row.
func (r *HeaderResolver) DetectHeader(rows []RawRow, preferredIndex int) (int, error) {
	window := len(rows)
	if window > HeaderScanRows {
		window = HeaderScanRows
	}
	if preferredIndex >= 0 && preferredIndex < window && r.qualifies(rows[preferredIndex]) {
		return preferredIndex, nil
	}
	for i := 0; i < window; i++ {
		if r.qualifies(rows[i]) {
			return i, nil
		}
	}
	return -1, &MissingHeaderError{ScannedRows: HeaderScanRows}
}

// qualifies accepts a row carrying the FusionSolar keywords, or one where the
// rule table places every required role in its own column.
func (r *HeaderResolver) qualifies(row RawRow) bool {
	if scoreHeader(row) >= headerMinScore {
		return true
	}
	m := r.ResolveColumns(row)
	if m.Validate() != nil {
		return false
	}
	return m.Timestamp != m.CumulativeYield && m.Timestamp != m.DeviceID && m.CumulativeYield != m.DeviceID
}

func scoreHeader(row RawRow) int {
	score := 0
	for _, kw := range headerKeywords {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), kw) {
				score++
				break
			}
		}
	}
	return score
}
