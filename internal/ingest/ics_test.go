package ingest

import (
	"strings"
	"testing"

	"github.com/abelbrown/daybook/internal/model"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:evt-1
DTSTAMP:20240110T080000Z
DTSTART:20240115T100000Z
DTEND:20240115T110000Z
SUMMARY:Press briefing
LOCATION:City hall
SEQUENCE:2
END:VEVENT
BEGIN:VEVENT
UID:evt-allday
DTSTAMP:20240110T080000Z
DTSTART;VALUE=DATE:20240116
DTEND;VALUE=DATE:20240117
SUMMARY:Public holiday
END:VEVENT
BEGIN:VEVENT
UID:evt-recurring
DTSTAMP:20240110T080000Z
DTSTART:20240115T090000Z
DTEND:20240115T093000Z
RRULE:FREQ=WEEKLY
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20240110T080000Z
DTSTART:20240118T090000Z
SUMMARY:No uid here
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseTimedEvent(t *testing.T) {
	items, err := Parse(crlf(sampleICS))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// recurring and uid-less events are skipped
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	it := items[0]
	if it.ID != "ics:evt-1" {
		t.Errorf("expected id ics:evt-1, got %q", it.ID)
	}
	if it.Type != model.TypeEvent {
		t.Errorf("expected event type, got %q", it.Type)
	}
	if it.Name != "Press briefing" {
		t.Errorf("expected summary as name, got %q", it.Name)
	}
	if it.Location != "City hall" {
		t.Errorf("expected location City hall, got %q", it.Location)
	}
	if it.Version != 2 {
		t.Errorf("expected sequence as version 2, got %d", it.Version)
	}
	if got := it.Dates.Start.UTC().Format("2006-01-02T15:04"); got != "2024-01-15T10:00" {
		t.Errorf("expected start 2024-01-15T10:00, got %s", got)
	}
	if got := it.VersionCreated.Format("2006-01-02"); got != "2024-01-10" {
		t.Errorf("expected versioncreated from DTSTAMP, got %s", got)
	}
}

func TestParseAllDayEndStaysOnDay(t *testing.T) {
	items, err := Parse(crlf(sampleICS))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var allDay model.Item
	for _, it := range items {
		if it.ID == "ics:evt-allday" {
			allDay = it
		}
	}
	if allDay.ID == "" {
		t.Fatal("all-day event not imported")
	}
	// DTEND is exclusive for all-day events; the span must not reach
	// into the 17th.
	if got := allDay.Dates.End.Format("2006-01-02"); got != "2024-01-16" {
		t.Errorf("expected end on 2024-01-16, got %s", got)
	}
	if allDay.Dates.End.Before(allDay.Dates.Start) {
		t.Error("end must not precede start")
	}
}

func TestParseEmptyBody(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Error("expected error for empty body")
	}
}

type memSaver struct {
	items []model.Item
}

func (m *memSaver) SaveItems(items []model.Item) (int, error) {
	m.items = append(m.items, items...)
	return len(items), nil
}

func TestImport(t *testing.T) {
	sink := &memSaver{}
	n, err := Import(crlf(sampleICS), sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}
	if len(sink.items) != 2 {
		t.Errorf("expected 2 saved, got %d", len(sink.items))
	}
}
