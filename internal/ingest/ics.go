// Package ingest imports calendar files into the local item cache.
//
// It accepts iCalendar payloads and converts each concrete VEVENT into
// an event item, so locally kept calendars show up in the agenda next
// to backend items. Recurring events are not expanded; a VEVENT with an
// RRULE is skipped.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/abelbrown/daybook/internal/logging"
	"github.com/abelbrown/daybook/internal/model"
)

// ItemSaver is the destination for imported items. *model.Store
// satisfies it.
type ItemSaver interface {
	SaveItems(items []model.Item) (int, error)
}

// Parse converts an ICS payload into items. VEVENTs without a UID or a
// parseable DTSTART are skipped, as are recurring events.
func Parse(body []byte) ([]model.Item, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ics body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	items := make([]model.Item, 0)
	for _, ve := range cal.Events() {
		it, ok := eventItem(ve)
		if !ok {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// Import parses body and saves the resulting items. It returns the
// number of items imported.
func Import(body []byte, dst ItemSaver) (int, error) {
	items, err := Parse(body)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	n, err := dst.SaveItems(items)
	if err != nil {
		return 0, fmt.Errorf("saving imported items: %w", err)
	}
	logging.Info("imported calendar items", "count", n)
	return n, nil
}

func eventItem(ve *ical.VEvent) (model.Item, bool) {
	var it model.Item

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		logging.Warn("skipping vevent without uid")
		return it, false
	}
	if ve.GetProperty(ical.ComponentPropertyRrule) != nil {
		logging.Warn("skipping recurring vevent", "uid", uid.Value)
		return it, false
	}

	start, err := ve.GetStartAt()
	if err != nil {
		logging.Warn("skipping vevent without start", "uid", uid.Value)
		return it, false
	}
	end, err := ve.GetEndAt()
	if err != nil || end.Before(start) {
		end = start
	}
	// All-day DTEND is exclusive per RFC 5545; pull it back so a one
	// day event does not spill into the next bucket.
	if allDay(ve) && end.After(start) {
		end = end.Add(-time.Nanosecond)
	}

	it.ID = "ics:" + uid.Value
	it.Type = model.TypeEvent
	it.Name = propValue(ve, ical.ComponentPropertySummary)
	if it.Name == "" {
		it.Name = "(untitled)"
	}
	it.Location = propValue(ve, ical.ComponentPropertyLocation)
	it.Dates = model.Dates{Start: start, End: end, Tz: startTZID(ve)}

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			it.Version = n
		}
	}
	it.VersionCreated = stampTime(ve, start)

	return it, true
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

func allDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func startTZID(ve *ical.VEvent) string {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return ""
	}
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		return tzs[0]
	}
	return ""
}

// stampTime is the creation timestamp used for version ordering. DTSTAMP
// when present, otherwise the event start.
func stampTime(ve *ical.VEvent, fallback time.Time) time.Time {
	p := ve.GetProperty("DTSTAMP")
	if p == nil {
		return fallback
	}
	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, p.Value); err == nil {
			return t
		}
	}
	return fallback
}
