// Package calendar loads calendar events from iCalendar files
package calendar

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/emersion/go-ical"

	"github.com/Ramsey-B/fern/pkg/models"
)

// PropTranscriptURL is an extension property carrying an explicit transcript link
const PropTranscriptURL = "X-FERN-TRANSCRIPT-URL"

// Loader parses VEVENTs into events. Floating times are read in Location.
type Loader struct {
	Location *time.Location
	logger   ectologger.Logger
}

func NewLoader(loc *time.Location, logger ectologger.Logger) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{Location: loc, logger: logger}
}

func (l *Loader) LoadFile(path string) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}
	defer f.Close()

	return l.Load(f)
}

// Load decodes every calendar in r. Cancelled events and events without an
// end are skipped; duplicate IDs keep the first occurrence.
func (l *Loader) Load(r io.Reader) ([]models.Event, error) {
	decoder := ical.NewDecoder(r)
	evts := []models.Event{}
	seen := map[string]bool{}
	skipped := 0

	for {
		cal, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}

			event, ok := l.parseEvent(comp)
			if !ok || seen[event.ID] {
				skipped++
				continue
			}
			seen[event.ID] = true
			evts = append(evts, event)
		}
	}

	sort.SliceStable(evts, func(i, j int) bool {
		return evts[i].End.Before(evts[j].End)
	})

	l.logger.WithFields(map[string]any{
		"events":  len(evts),
		"skipped": skipped,
	}).Debug("Loaded calendar events")

	return evts, nil
}

func (l *Loader) parseEvent(comp *ical.Component) (models.Event, bool) {
	event := models.Event{
		ID:          propValue(comp, ical.PropUID),
		Title:       propValue(comp, ical.PropSummary),
		Description: propValue(comp, ical.PropDescription),
	}

	if strings.EqualFold(propValue(comp, ical.PropStatus), "CANCELLED") {
		return event, false
	}

	start, err := l.dateTime(comp, ical.PropDateTimeStart)
	if err != nil {
		l.logger.WithError(err).WithField("uid", event.ID).Warn("Skipping event with unreadable start")
		return event, false
	}
	event.Start = start

	end, err := l.dateTime(comp, ical.PropDateTimeEnd)
	if err != nil {
		end, err = l.endFromDuration(comp, start)
	}
	if err != nil || end.IsZero() {
		l.logger.WithField("uid", event.ID).Warn("Skipping event without an end time")
		return event, false
	}
	event.End = end

	if event.ID == "" {
		event.ID = start.UTC().Format("20060102T150405Z") + "-" + Slug(event.Title)
	}
	if recurrence := comp.Props.Get(ical.PropRecurrenceID); recurrence != nil {
		event.ID += "-" + recurrence.Value
	}

	event.Participants = participants(comp)
	event.Metadata = metadata(comp)
	return event, true
}

func (l *Loader) dateTime(comp *ical.Component, name string) (time.Time, error) {
	prop := comp.Props.Get(name)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing %s", name)
	}
	return prop.DateTime(l.Location)
}

func (l *Loader) endFromDuration(comp *ical.Component, start time.Time) (time.Time, error) {
	prop := comp.Props.Get(ical.PropDuration)
	if prop == nil || start.IsZero() {
		return time.Time{}, errors.New("missing DTEND and DURATION")
	}
	d, err := prop.Duration()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(d), nil
}

// participants prefers the attendee's display name and falls back to the mailto address
func participants(comp *ical.Component) []string {
	var out []string
	for _, prop := range comp.Props.Values(ical.PropAttendee) {
		if name := strings.TrimSpace(prop.Params.Get(ical.ParamCommonName)); name != "" {
			out = append(out, name)
			continue
		}
		addr := strings.TrimSpace(prop.Value)
		if len(addr) >= 7 && strings.EqualFold(addr[:7], "mailto:") {
			addr = addr[7:]
		}
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func metadata(comp *ical.Component) map[string]any {
	meta := map[string]any{}
	if v := propValue(comp, PropTranscriptURL); v != "" {
		meta["transcript_url"] = v
	}
	if v := propValue(comp, ical.PropURL); v != "" {
		meta["url"] = v
	}
	if v := propValue(comp, ical.PropLocation); v != "" {
		meta["location"] = v
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func propValue(comp *ical.Component, name string) string {
	if prop := comp.Props.Get(name); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

// Slug lowercases s and joins its alphanumeric runs with dashes
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
