package nets

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	appLog "netsched/internal/log"
	"netsched/internal/model"
)

// Wire format of the nets data file (YAML; JSON parses too since it is a
// YAML subset):
//
//	time_zone: America/New_York
//	nets:
//	  - id: friday-night-net
//	    category: bhn
//	    name: Friday Night Net
//	    start_local: "20:00"
//	    duration_min: 60
//	    rrule: FREQ=WEEKLY;BYDAY=FR
//	    time_zone: America/New_York
//	    allstar: "50631"
//	    ...
//
// Any key beyond the base fields is folded into Connections.

// DefinitionError reports a single invalid net definition. Invalid
// definitions are rejected at load time; the engine never expands them.
type DefinitionError struct {
	NetID  string
	Field  string
	Reason string
}

func (e *DefinitionError) Error() string {
	id := e.NetID
	if id == "" {
		id = "(no id)"
	}
	return fmt.Sprintf("invalid net definition %s: %s: %s", id, e.Field, e.Reason)
}

// Options controls parsing and validation.
type Options struct {
	// Categories is the closed set of allowed categories. Empty means any
	// non-empty category is accepted.
	Categories []model.Category

	// Strict makes any invalid entry fail the whole load. The default is
	// to skip invalid entries, log them, and return the valid remainder.
	Strict bool

	// DefaultTimeZone is used for entries without their own time_zone.
	// The file's top-level time_zone, when present, takes precedence
	// over this value.
	DefaultTimeZone string
}

// Set is a parsed, validated nets file.
type Set struct {
	// TimeZone is the file's default zone, also used as the site display zone.
	TimeZone string
	Nets     []model.NetDefinition
	// Skipped holds the validation errors for entries dropped in
	// non-strict mode.
	Skipped []error
}

type rawFile struct {
	TimeZone string   `yaml:"time_zone"`
	Nets     []rawNet `yaml:"nets"`
}

type rawNet struct {
	ID          string         `yaml:"id"`
	Category    string         `yaml:"category"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	StartLocal  string         `yaml:"start_local"`
	DurationMin int            `yaml:"duration_min"`
	RRule       string         `yaml:"rrule"`
	TimeZone    string         `yaml:"time_zone"`
	Extra       map[string]any `yaml:",inline"`
}

// Load reads and parses a nets file from disk.
func Load(path string, opts Options) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nets: read %s: %w", path, err)
	}
	return Parse(data, opts)
}

// Parse parses and validates a nets payload.
func Parse(data []byte, opts Options) (*Set, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("nets: parse: %w", err)
	}

	defaultTZ := raw.TimeZone
	if defaultTZ == "" {
		defaultTZ = opts.DefaultTimeZone
	}

	set := &Set{TimeZone: defaultTZ}
	seen := make(map[string]bool)

	for _, rn := range raw.Nets {
		def, err := validateNet(rn, defaultTZ, opts.Categories)
		if err == nil && seen[def.ID] {
			err = &DefinitionError{NetID: def.ID, Field: "id", Reason: "duplicate id"}
		}
		if err != nil {
			if opts.Strict {
				return nil, err
			}
			appLog.Warn("nets: skipping invalid definition", "err", err)
			set.Skipped = append(set.Skipped, err)
			continue
		}
		seen[def.ID] = true
		set.Nets = append(set.Nets, def)
	}

	return set, nil
}

func validateNet(rn rawNet, defaultTZ string, categories []model.Category) (model.NetDefinition, error) {
	var def model.NetDefinition

	id := strings.TrimSpace(rn.ID)
	if id == "" {
		return def, &DefinitionError{Field: "id", Reason: "missing"}
	}
	def.ID = id
	def.Name = strings.TrimSpace(rn.Name)
	def.Description = strings.TrimSpace(rn.Description)

	cat := model.Category(strings.ToLower(strings.TrimSpace(rn.Category)))
	if cat == "" {
		return def, &DefinitionError{NetID: id, Field: "category", Reason: "missing"}
	}
	if len(categories) > 0 && !containsCategory(categories, cat) {
		return def, &DefinitionError{NetID: id, Field: "category", Reason: fmt.Sprintf("unknown category %q", cat)}
	}
	def.Category = cat

	tod, err := parseTimeOfDay(rn.StartLocal)
	if err != nil {
		return def, &DefinitionError{NetID: id, Field: "start_local", Reason: err.Error()}
	}
	def.StartLocal = tod

	if rn.DurationMin <= 0 {
		return def, &DefinitionError{NetID: id, Field: "duration_min", Reason: "must be a positive number of minutes"}
	}
	def.DurationMin = rn.DurationMin

	rec, err := ParseRRule(rn.RRule)
	if err != nil {
		return def, &DefinitionError{NetID: id, Field: "rrule", Reason: err.Error()}
	}
	def.Recurrence = rec

	tz := strings.TrimSpace(rn.TimeZone)
	if tz == "" {
		tz = defaultTZ
	}
	if tz == "" {
		return def, &DefinitionError{NetID: id, Field: "time_zone", Reason: "missing and no file default"}
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return def, &DefinitionError{NetID: id, Field: "time_zone", Reason: fmt.Sprintf("unrecognized zone %q", tz)}
	}
	def.TimeZone = tz

	def.Connections = foldConnections(rn.Extra)

	return def, nil
}

func containsCategory(set []model.Category, c model.Category) bool {
	for _, s := range set {
		if s == c {
			return true
		}
	}
	return false
}

// parseTimeOfDay parses "HH:MM" (24h).
func parseTimeOfDay(s string) (model.TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.TimeOfDay{}, errors.New("missing")
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return model.TimeOfDay{}, fmt.Errorf("not HH:MM form: %q", s)
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(hh))
	m, err2 := strconv.Atoi(strings.TrimSpace(mm))
	if err1 != nil || err2 != nil {
		return model.TimeOfDay{}, fmt.Errorf("not HH:MM form: %q", s)
	}
	tod := model.TimeOfDay{Hour: h, Minute: m}
	if !tod.Valid() {
		return model.TimeOfDay{}, fmt.Errorf("out of range: %q", s)
	}
	return tod, nil
}

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// ParseRRule parses the restricted RRULE dialect used by the nets file:
// FREQ=DAILY|WEEKLY|MONTHLY with BYDAY weekday codes and an optional
// ordinal, either as a BYDAY prefix ("1SA", "-1SA") or via BYSETPOS.
// An empty string defaults to WEEKLY, matching the historical data.
func ParseRRule(s string) (model.Recurrence, error) {
	var rec model.Recurrence

	parts := make(map[string]string)
	for _, item := range strings.Split(strings.ToUpper(strings.TrimSpace(s)), ";") {
		if item == "" {
			continue
		}
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		parts[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	freq := parts["FREQ"]
	if freq == "" {
		freq = "WEEKLY"
	}

	var weekdays []time.Weekday
	pos := 0
	for _, code := range strings.Split(parts["BYDAY"], ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		// Optional ordinal prefix, e.g. 1SA or -1SA.
		day := code
		if len(code) > 2 {
			n, err := strconv.Atoi(code[:len(code)-2])
			if err != nil {
				return rec, fmt.Errorf("bad BYDAY entry %q", code)
			}
			pos = n
			day = code[len(code)-2:]
		}
		wd, ok := weekdayCodes[day]
		if !ok {
			return rec, fmt.Errorf("bad BYDAY entry %q", code)
		}
		weekdays = append(weekdays, wd)
	}
	sort.Slice(weekdays, func(i, j int) bool { return weekdays[i] < weekdays[j] })

	if v := parts["BYSETPOS"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rec, fmt.Errorf("bad BYSETPOS %q", v)
		}
		pos = n
	}

	switch freq {
	case "DAILY":
		if pos != 0 {
			return rec, errors.New("weekday ordinals are only valid with FREQ=MONTHLY")
		}
		rec.Freq = model.FreqDaily
	case "WEEKLY":
		// A silently ignored ordinal would make the rule mean something
		// other than what it expands to, so refuse it outright.
		if pos != 0 {
			return rec, errors.New("weekday ordinals are only valid with FREQ=MONTHLY")
		}
		rec.Freq = model.FreqWeekly
		if len(weekdays) == 0 {
			return rec, errors.New("WEEKLY rule needs at least one BYDAY weekday")
		}
		rec.Weekdays = weekdays
	case "MONTHLY":
		rec.Freq = model.FreqMonthly
		if len(weekdays) != 1 {
			return rec, errors.New("MONTHLY rule needs exactly one BYDAY weekday")
		}
		if pos == 0 {
			pos = 1
		}
		if pos < model.MonthLast || pos > 4 || pos == 0 {
			return rec, fmt.Errorf("month ordinal must be 1..4 or -1, got %d", pos)
		}
		rec.Weekdays = weekdays
		rec.MonthPos = pos
	default:
		return rec, fmt.Errorf("unsupported FREQ %q", freq)
	}

	return rec, nil
}

// foldConnections flattens the unrecognized entry keys into the opaque
// connections map, normalizing key case to the historical lowercase forms.
func foldConnections(extra map[string]any) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		if v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s == "" {
			continue
		}
		out[strings.ToLower(k)] = s
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
