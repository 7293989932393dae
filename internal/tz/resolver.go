package tz

import (
	"bufio"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	// Embed the IANA database so minimal images resolve zones too.
	_ "time/tzdata"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var ErrTimezoneNotFound = errors.New("timezone not found")

// Zone is a catalogue entry with its offset resolved at a specific instant.
type Zone struct {
	ID            string
	Country       string
	Cities        []string
	OffsetMinutes int
}

type entry struct {
	id      string
	country string
	cities  []string
}

// Resolver resolves IANA timezone identifiers. Offsets are never cached:
// each call loads the location and asks for the offset at the given instant.
type Resolver struct {
	entries []entry
	byID    map[string]int // lower-cased id -> index in entries
}

// New parses a catalogue in the "id;country;city|city" format (see assets.ZonesCSV).
func New(catalogue string) (*Resolver, error) {
	r := &Resolver{byID: make(map[string]int)}
	sc := bufio.NewScanner(strings.NewReader(catalogue))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, ";")
		if len(parts) != 3 {
			return nil, fmt.Errorf("catalogue line %d: expected 3 fields, got %d", line, len(parts))
		}
		id := strings.TrimSpace(parts[0])
		if _, err := time.LoadLocation(id); err != nil {
			return nil, fmt.Errorf("catalogue line %d: %w", line, err)
		}
		e := entry{id: id, country: strings.TrimSpace(parts[1])}
		for _, c := range strings.Split(parts[2], "|") {
			if c = strings.TrimSpace(c); c != "" {
				e.cities = append(e.cities, c)
			}
		}
		r.byID[strings.ToLower(id)] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// Canonical returns the properly cased identifier for id. Catalogue entries
// match case-insensitively; any other name must be loadable as-is.
func (r *Resolver) Canonical(id string) (string, error) {
	id = strings.TrimSpace(id)
	if i, ok := r.byID[strings.ToLower(id)]; ok {
		return r.entries[i].id, nil
	}
	if _, err := r.location(id); err != nil {
		return "", err
	}
	return id, nil
}

// OffsetMinutes returns the UTC offset of id at the given instant.
func (r *Resolver) OffsetMinutes(id string, at time.Time) (int, error) {
	loc, err := r.location(id)
	if err != nil {
		return 0, err
	}
	_, offset := at.In(loc).Zone()
	return offset / 60, nil
}

// Find looks up a single zone by identifier.
func (r *Resolver) Find(id string, at time.Time) (Zone, error) {
	canonical, err := r.Canonical(id)
	if err != nil {
		return Zone{}, err
	}
	offset, err := r.OffsetMinutes(canonical, at)
	if err != nil {
		return Zone{}, err
	}
	z := Zone{ID: canonical, OffsetMinutes: offset}
	if i, ok := r.byID[strings.ToLower(canonical)]; ok {
		z.Country = r.entries[i].country
		z.Cities = r.entries[i].cities
	}
	return z, nil
}

// List returns the whole catalogue with offsets resolved at at.
func (r *Resolver) List(at time.Time) []Zone {
	out := make([]Zone, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, r.zone(e, at))
	}
	return out
}

// Search ranks catalogue zones against a free-text query, matching the
// identifier, its city part, the country and the main cities.
// Best matches come first; at most limit zones are returned.
func (r *Resolver) Search(query string, at time.Time, limit int) []Zone {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil
	}

	var (
		targets []string
		owners  []int
	)
	for i, e := range r.entries {
		keys := append([]string{e.id, cityPart(e.id), e.country}, e.cities...)
		for _, k := range keys {
			if k == "" {
				continue
			}
			targets = append(targets, k)
			owners = append(owners, i)
		}
	}

	best := make(map[int]int)
	for _, rank := range fuzzy.RankFindNormalizedFold(query, targets) {
		owner := owners[rank.OriginalIndex]
		if d, ok := best[owner]; !ok || rank.Distance < d {
			best[owner] = rank.Distance
		}
	}

	idx := make([]int, 0, len(best))
	for i := range best {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		da, db := best[idx[a]], best[idx[b]]
		if da != db {
			return da < db
		}
		return r.entries[idx[a]].id < r.entries[idx[b]].id
	})
	if len(idx) > limit {
		idx = idx[:limit]
	}

	out := make([]Zone, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.zone(r.entries[i], at))
	}
	return out
}

func (r *Resolver) zone(e entry, at time.Time) Zone {
	z := Zone{ID: e.id, Country: e.country, Cities: e.cities}
	if off, err := r.OffsetMinutes(e.id, at); err == nil {
		z.OffsetMinutes = off
	}
	return z
}

func (r *Resolver) location(id string) (*time.Location, error) {
	// "" and "Local" load successfully but depend on the host, not the user.
	if id == "" || id == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrTimezoneNotFound, id)
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrTimezoneNotFound, id)
	}
	return loc, nil
}

// cityPart turns "America/Argentina/Buenos_Aires" into "Buenos Aires".
func cityPart(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return strings.ReplaceAll(id, "_", " ")
}

// FormatOffset renders an offset in minutes as "+05:30".
func FormatOffset(minutes int) string {
	sign := '+'
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("%c%02d:%02d", sign, minutes/60, minutes%60)
}
