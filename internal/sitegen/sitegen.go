// Package sitegen writes the next_net.yml data artifact consumed by the
// static site: the highlighted next net plus the coming week's list.
package sitegen

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"netsched/internal/model"
	"netsched/internal/schedule"
)

// Entry is one serialized occurrence in the site payload. Field names are
// part of the site's wire contract; shape changes must be additive only.
type Entry struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description,omitempty"`
	Category      string            `yaml:"category"`
	StartLocalISO string            `yaml:"start_local_iso"`
	DurationMin   int               `yaml:"duration_min"`
	TimeZone      string            `yaml:"time_zone"`
	Adjusted      bool              `yaml:"adjusted,omitempty"`
	Connections   map[string]string `yaml:"connections,omitempty"`
}

// Payload is the full next_net.yml document.
type Payload struct {
	TimeZone          string   `yaml:"time_zone"`
	GeneratedAt       string   `yaml:"generated_at,omitempty"`
	NextNet           *Entry   `yaml:"next_net"`
	Week              []Entry  `yaml:"week"`
	Categories        []string `yaml:"categories"`
	PrimaryCategory   string   `yaml:"primary_category"`
	DefaultCategories []string `yaml:"default_categories"`
}

// BuildConfig controls payload assembly.
type BuildConfig struct {
	// TimeZone is the site's display zone, echoed into the payload.
	TimeZone string
	// PrimaryCategory is highlighted as the next net when it has an
	// upcoming occurrence.
	PrimaryCategory model.Category
	// CategoryFilter restricts the week list to one category; empty
	// means all.
	CategoryFilter model.Category
	// WeekWindow bounds the week list (occurrences starting within this
	// span from now).
	WeekWindow time.Duration
	// IncludeTimestamp adds generated_at. Off by default to avoid noisy
	// site commits when nothing else changed.
	IncludeTimestamp bool
}

// Build assembles the payload from an already-ordered feed. The next-net
// pick reuses the schedule selector, so the site and the API agree on
// which net is next.
func Build(feed schedule.Feed, now time.Time, cfg BuildConfig) Payload {
	upcoming := feed.Upcoming(now)

	sel := schedule.SelectNext(upcoming, now, cfg.PrimaryCategory)

	listed := upcoming
	if cfg.CategoryFilter != "" {
		listed = listed.Category(cfg.CategoryFilter)
	}
	week := listed.StartingBy(now.Add(cfg.WeekWindow))

	p := Payload{
		TimeZone:        cfg.TimeZone,
		PrimaryCategory: string(cfg.PrimaryCategory),
		Week:            make([]Entry, 0, len(week)),
		Categories:      []string{},
	}
	if cfg.IncludeTimestamp {
		p.GeneratedAt = now.Format(time.RFC3339)
	}
	if sel.Occurrence != nil {
		e := entryFor(*sel.Occurrence)
		p.NextNet = &e
	}
	for _, occ := range week {
		p.Week = append(p.Week, entryFor(occ))
	}
	for _, c := range listed.Categories() {
		p.Categories = append(p.Categories, string(c))
	}
	if cfg.PrimaryCategory != "" {
		p.DefaultCategories = []string{string(cfg.PrimaryCategory)}
	} else {
		p.DefaultCategories = []string{}
	}

	return p
}

func entryFor(occ model.Occurrence) Entry {
	return Entry{
		ID:            occ.NetID,
		Name:          occ.Name,
		Description:   occ.Description,
		Category:      string(occ.Category),
		StartLocalISO: occ.Start.Format(time.RFC3339),
		DurationMin:   int(occ.End.Sub(occ.Start) / time.Minute),
		TimeZone:      occ.TimeZone,
		Adjusted:      occ.Adjusted,
		Connections:   occ.Connections,
	}
}

// Write marshals the payload and writes it atomically (temp file + rename)
// so the site build never reads a half-written file.
func Write(path string, p Payload) error {
	if path == "" {
		return errors.New("sitegen: output path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(&p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".next-net-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
