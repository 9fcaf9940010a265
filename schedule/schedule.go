// Package schedule defines when the queue reminder gets posted and sets up the gocron job doing it
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexandre-normand/printqueue/config"
	"github.com/marcsantiago/gocron"
	"github.com/spf13/viper"
)

// Definition represents a recurring schedule
type Definition struct {
	// Internal value (every 1 minute would be expressed with an interval of 1). Must be set explicitly or implicitly (a weekday value implicitly sets the interval to 1)
	Interval uint64

	// Must be set explicitly or implicitly ("weeks" is implicitly set when "Weekday" is set). Valid time units are: "weeks", "hours", "days", "minutes", "seconds"
	Unit string

	// Optional day of the week. If set, unit and interval are ignored and implicitly considered to be "every 1 week"
	Weekday string

	// Optional "at time" value (i.e. "10:30")
	AtTime string
}

// Unit values
const (
	Weeks   = "weeks"
	Hours   = "hours"
	Days    = "days"
	Minutes = "minutes"
	Seconds = "seconds"
)

var weekdayToNumeral = map[string]time.Weekday{
	time.Monday.String():    time.Monday,
	time.Tuesday.String():   time.Tuesday,
	time.Wednesday.String(): time.Wednesday,
	time.Thursday.String():  time.Thursday,
	time.Friday.String():    time.Friday,
	time.Saturday.String():  time.Saturday,
	time.Sunday.String():    time.Sunday,
}

var validUnits = map[string]bool{Weeks: true, Hours: true, Days: true, Minutes: true, Seconds: true}

// ReminderDefinition returns the reminder schedule held by the configuration
func ReminderDefinition(v *viper.Viper) (d Definition) {
	return Definition{
		Interval: uint64(v.GetInt(config.ReminderIntervalKey)),
		Unit:     v.GetString(config.ReminderUnitKey),
		Weekday:  v.GetString(config.ReminderWeekdayKey),
		AtTime:   v.GetString(config.ReminderAtTimeKey),
	}
}

// Returns a human-friendly string for the Definition
func (d Definition) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Every ")

	if d.Weekday != "" {
		fmt.Fprintf(&b, "%s", d.Weekday)
	} else if d.Interval == 1 {
		fmt.Fprintf(&b, "%s", strings.TrimSuffix(d.Unit, "s"))
	} else {
		fmt.Fprintf(&b, "%d %s", d.Interval, d.Unit)
	}

	if d.AtTime != "" {
		fmt.Fprintf(&b, " at %s", d.AtTime)
	}

	return b.String()
}

// Validate returns an error if the weekday or unit isn't one gocron supports or if the interval is 0
func (d Definition) Validate() (err error) {
	if d.Weekday != "" {
		if _, ok := weekdayToNumeral[d.Weekday]; !ok {
			return fmt.Errorf("Invalid weekday [%s] in schedule [%s]", d.Weekday, d)
		}

		return nil
	}

	if !validUnits[d.Unit] {
		return fmt.Errorf("Invalid unit [%s] in schedule [%s]", d.Unit, d)
	}

	if d.Interval == 0 {
		return fmt.Errorf("Invalid interval [0] in schedule [%s]", d)
	}

	return nil
}

// NewJob sets up the gocron.Job with the schedule and leaves the task undefined for the caller to set up
func NewJob(s *gocron.Scheduler, d Definition) (j *gocron.Job, err error) {
	if err = d.Validate(); err != nil {
		return nil, err
	}

	interval := d.Interval
	if d.Weekday != "" && interval == 0 {
		interval = 1
	}

	j = s.Every(interval, false)

	if d.Weekday != "" {
		switch d.Weekday {
		case time.Monday.String():
			j = j.Monday()
		case time.Tuesday.String():
			j = j.Tuesday()
		case time.Wednesday.String():
			j = j.Wednesday()
		case time.Thursday.String():
			j = j.Thursday()
		case time.Friday.String():
			j = j.Friday()
		case time.Saturday.String():
			j = j.Saturday()
		case time.Sunday.String():
			j = j.Sunday()
		}
	} else {
		switch d.Unit {
		case Weeks:
			j = j.Weeks()
		case Hours:
			j = j.Hours()
		case Days:
			j = j.Days()
		case Minutes:
			j = j.Minutes()
		case Seconds:
			j = j.Seconds()
		}
	}

	if d.AtTime != "" {
		j = j.At(d.AtTime)
	}

	if j.Err() != nil {
		return nil, j.Err()
	}

	return j, nil
}
