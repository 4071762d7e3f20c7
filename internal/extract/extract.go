// Package extract parses the plain-text exports written by speed cameras.
package extract

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

// Candidate labels per logical field, in priority order.
var (
	serialKeys          = []string{"nr serial", "numero de serie", "nro serial"}
	dateKeys            = []string{"fecha"}
	timeKeys            = []string{"hora"}
	locationKeys        = []string{"ubicacion"}
	measuredSpeedKeys   = []string{"velocidad medida", "velocidad media", "velocidad registrada"}
	authorizedSpeedKeys = []string{"velocidad maxima autorizada", "velocidad autorizada", "velocidad maxima"}
	latKeys             = []string{"latitud"}
	lngKeys             = []string{"longitud"}
)

var (
	lineRe  = regexp.MustCompile(`^([^:=]+)[:=](.*)$`)
	dateRe  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})$`)
	unitRe  = regexp.MustCompile(`(?i)km/?h`)
	numRe   = regexp.MustCompile(`[^\d.,-]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// kv keeps camera labels in file order; lookups depend on it.
type kv struct {
	keys   []string
	values map[string]string
}

func parseLines(raw string) kv {
	out := kv{values: make(map[string]string)}
	raw = strings.ReplaceAll(raw, "\r", "")
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		k := normKey(m[1])
		if k == "" {
			continue
		}
		if _, seen := out.values[k]; seen {
			continue
		}
		out.keys = append(out.keys, k)
		out.values[k] = strings.TrimSpace(m[2])
	}
	return out
}

// lookup returns the first non-empty value for the candidates: exact label
// first, then the first label containing the candidate.
func (m kv) lookup(candidates ...string) (string, bool) {
	for _, c := range candidates {
		c = normKey(c)
		if v, ok := m.values[c]; ok {
			return v, v != ""
		}
		for _, k := range m.keys {
			if strings.Contains(k, c) {
				v := m.values[k]
				return v, v != ""
			}
		}
	}
	return "", false
}

// Extract parses a camera text export. It never fails: lines it cannot
// understand are skipped and unresolved fields stay nil.
func Extract(raw string) entity.CameraExtraction {
	m := parseLines(raw)
	var out entity.CameraExtraction

	if v, ok := m.lookup(serialKeys...); ok {
		out.CameraSerial = &v
	}
	if d, ok := m.lookup(dateKeys...); ok {
		if h, ok := m.lookup(timeKeys...); ok {
			if ts, ok := parseTimestamp(d, h); ok {
				out.IssuedAt = &ts
			}
		}
	}
	if v, ok := m.lookup(locationKeys...); ok {
		out.Location = &v
	}
	if v, ok := m.lookup(measuredSpeedKeys...); ok {
		out.MeasuredSpeed = toNumber(v)
	}
	if v, ok := m.lookup(authorizedSpeedKeys...); ok {
		out.AuthorizedSpeed = toNumber(v)
	}
	if v, ok := m.lookup(latKeys...); ok {
		out.Lat = toNumber(v)
	}
	if v, ok := m.lookup(lngKeys...); ok {
		out.Lng = toNumber(v)
	}
	return out
}

// ExtractFile reads a camera export from disk and parses it.
func ExtractFile(path string) (entity.CameraExtraction, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return entity.CameraExtraction{}, fmt.Errorf("read camera export: %w", err)
	}
	return Extract(string(b)), nil
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normKey(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(strings.ToLower(folded), " "))
}

// parseTimestamp combines D/M/YYYY and H:MM:SS into a UTC instant using the
// camera's wall-clock digits verbatim.
func parseTimestamp(date, clock string) (time.Time, bool) {
	dm := dateRe.FindStringSubmatch(strings.TrimSpace(date))
	hm := clockRe.FindStringSubmatch(strings.TrimSpace(clock))
	if dm == nil || hm == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(dm[1])
	month, _ := strconv.Atoi(dm[2])
	year, _ := strconv.Atoi(dm[3])
	hour, _ := strconv.Atoi(hm[1])
	minute, _ := strconv.Atoi(hm[2])
	sec, _ := strconv.Atoi(hm[3])
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}
	ts := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if ts.Day() != day {
		// 31/02 and friends would silently roll into the next month
		return time.Time{}, false
	}
	return ts, true
}

func toNumber(s string) *float64 {
	cleaned := unitRe.ReplaceAllString(s, "")
	cleaned = numRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(strings.Replace(cleaned, ",", ".", 1))
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
