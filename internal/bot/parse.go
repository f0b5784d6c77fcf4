package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"daybook/internal/service"
)

// weeklyRepeats is how many following weeks "weekly" plans ahead.
const weeklyRepeats = 6

var (
	errNoTitle = errors.New("usage: /add <title> [YYYY-MM-DD] [HH:MM-HH:MM] [weekly]")
	errTagArgs = errors.New("usage: /tag <YYYY-MM-DD> [YYYY-MM-DD] <tag>[, tag...]")
)

// addRequest is a parsed /add command.
type addRequest struct {
	input       service.TaskInput
	window      *service.Window
	repeatWeeks int
}

// parseAdd reads "/add" arguments. Optional trailing tokens are a date, a time
// range and the word "weekly", in any order; everything before them is the title.
func parseAdd(args string, today time.Time) (addRequest, error) {
	fields := strings.Fields(args)
	var (
		req      addRequest
		date     *time.Time
		from, to *service.ClockTime
	)

tokens:
	for len(fields) > 0 {
		last := fields[len(fields)-1]
		switch {
		case strings.EqualFold(last, "weekly"):
			req.repeatWeeks = weeklyRepeats
		case looksLikeDate(last):
			d, err := time.ParseInLocation("2006-01-02", last, today.Location())
			if err != nil {
				return addRequest{}, fmt.Errorf("bad date %q, expected YYYY-MM-DD", last)
			}
			date = &d
		case strings.Contains(last, "-") && strings.Contains(last, ":"):
			start, end, err := parseRange(last)
			if err != nil {
				return addRequest{}, err
			}
			from, to = &start, &end
		default:
			break tokens
		}
		fields = fields[:len(fields)-1]
	}

	title := strings.TrimSpace(strings.Join(fields, " "))
	if title == "" {
		return addRequest{}, errNoTitle
	}
	req.input.Title = title

	day := today
	if date != nil {
		day = *date
	}
	if date != nil || from != nil || req.repeatWeeks > 0 {
		due := day
		if from != nil {
			due = from.On(day)
		}
		req.input.DueAt = &due
	}
	if from != nil {
		req.window = &service.Window{Start: from.On(day), End: to.On(day)}
	}
	return req, nil
}

func looksLikeDate(s string) bool {
	return len(s) == len("2006-01-02") && s[4] == '-' && s[7] == '-'
}

func parseRange(s string) (service.ClockTime, service.ClockTime, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return service.ClockTime{}, service.ClockTime{}, fmt.Errorf("bad time range %q, expected HH:MM-HH:MM", s)
	}
	start, err := service.ParseClock(parts[0])
	if err != nil {
		return service.ClockTime{}, service.ClockTime{}, err
	}
	end, err := service.ParseClock(parts[1])
	if err != nil {
		return service.ClockTime{}, service.ClockTime{}, err
	}
	return start, end, nil
}

// parseIndex reads a 1-based list position.
func parseIndex(args string, size int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), "#")))
	if err != nil || n < 1 || n > size {
		if size == 0 {
			return 0, errors.New("open /tasks first")
		}
		return 0, fmt.Errorf("pick a number between 1 and %d", size)
	}
	return n - 1, nil
}

// parseDay reads an optional YYYY-MM-DD argument, defaulting to today.
func parseDay(args string, today time.Time) (time.Time, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return today, nil
	}
	d, err := time.ParseInLocation("2006-01-02", args, today.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, expected YYYY-MM-DD", args)
	}
	return d, nil
}

// parseTag reads "/tag" arguments: a first day, an optional last day and a
// comma separated tag list.
func parseTag(args string, loc *time.Location) (from, to time.Time, tags []string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || !looksLikeDate(fields[0]) {
		return time.Time{}, time.Time{}, nil, errTagArgs
	}
	if from, err = time.ParseInLocation("2006-01-02", fields[0], loc); err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("bad date %q, expected YYYY-MM-DD", fields[0])
	}
	to, rest := from, fields[1:]
	if looksLikeDate(rest[0]) {
		if to, err = time.ParseInLocation("2006-01-02", rest[0], loc); err != nil {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("bad date %q, expected YYYY-MM-DD", rest[0])
		}
		rest = rest[1:]
	}
	for _, tag := range strings.Split(strings.Join(rest, " "), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return time.Time{}, time.Time{}, nil, errTagArgs
	}
	return from, to, tags, nil
}
