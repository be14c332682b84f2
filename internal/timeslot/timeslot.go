package timeslot

import (
	"errors"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DefaultZone is the timezone assumed when the input carries none.
const DefaultZone = "Europe/Amsterdam"

var (
	ErrParse       = errors.New("could not parse date/time")
	ErrGranularity = errors.New("slots start on the hour, specify up to the hour")
	ErrPastTime    = errors.New("requested time is in the past")
)

// Explicit layouts are tried before falling back to natural-language
// parsing. Layouts without a zone are interpreted in the target zone.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15",
	"2006-01-02",
}

// Target is a validated slot start time: timezone-aware and truncated to
// an exact hour boundary. Immutable once produced by Normalize.
type Target struct {
	t time.Time
}

// Normalize interprets raw as a future instant in loc and validates it as
// a bookable slot start. Ambiguous expressions ("friday", "4pm") resolve
// forward from now.
func Normalize(raw string, now time.Time, loc *time.Location) (Target, error) {
	t, err := parse(raw, now, loc)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q", ErrParse, raw)
	}
	if t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return Target{}, fmt.Errorf("%w: got %s", ErrGranularity, t.Format("15:04:05"))
	}
	if !t.After(now) {
		return Target{}, fmt.Errorf("%w: %s", ErrPastTime, t.Format(time.RFC3339))
	}
	return Target{t: t}, nil
}

// natural matches date/time expressions anywhere in the input ("4pm
// tomorrow" and "tomorrow at 4pm" both work) and reports when nothing
// matched at all.
var natural = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

func parse(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	// Clock fields the expression leaves unset are inherited from the
	// base, so anchor it to the top of the current hour: "4pm tomorrow"
	// must not pick up the current minute or second.
	base := now.In(loc)
	base = time.Date(base.Year(), base.Month(), base.Day(), base.Hour(), 0, 0, 0, loc)
	r, err := natural.Parse(raw, base)
	if err != nil {
		return time.Time{}, err
	}
	if r == nil {
		return time.Time{}, errors.New("no date/time expression found")
	}
	return r.Time, nil
}

// Time returns the target instant.
func (tg Target) Time() time.Time { return tg.t }

// DayStart returns 00:00 of the target's calendar day, in its zone.
func (tg Target) DayStart() time.Time {
	y, m, d := tg.t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, tg.t.Location())
}

// DayEnd returns 23:00 of the target's calendar day, in its zone. The
// remote schedule publishes hourly slots, so 23:00 is the last possible
// start of the day.
func (tg Target) DayEnd() time.Time {
	y, m, d := tg.t.Date()
	return time.Date(y, m, d, 23, 0, 0, 0, tg.t.Location())
}

// UTCString returns the canonical form of the target instant, the
// exact-match key against published slot start dates.
func (tg Target) UTCString() string { return UTCString(tg.t) }

func (tg Target) String() string {
	return fmt.Sprintf("%s at %dh (%s)", tg.t.Format("2006-01-02"), tg.t.Hour(), tg.t.Location())
}

// UTCString formats t the way the remote service keys its timestamps:
// millisecond-precision UTC with a literal trailing Z.
func UTCString(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "Z"
}
