// Package cronexpr validates and describes five-field cron expressions for
// display. Nothing is scheduled client-side.
package cronexpr

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Validate reports whether expr is a valid five-field cron expression.
func Validate(expr string) error {
	if len(strings.Fields(expr)) != 5 {
		return fmt.Errorf("cron expression %q must have 5 fields", expr)
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("parse cron expression: %w", err)
	}
	return nil
}

// Next returns up to n activation times after from.
func Next(expr string, from time.Time, n int) ([]time.Time, error) {
	if err := Validate(expr); err != nil {
		return nil, err
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression: %w", err)
	}
	out := make([]time.Time, 0, n)
	t := from
	for range n {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// Describe renders common expressions in words. Anything it does not
// recognise, including input without exactly five fields, is returned as is.
func Describe(expr string) string {
	f := strings.Fields(expr)
	if len(f) != 5 {
		return expr
	}
	minute, hour, dom, month, dow := f[0], f[1], f[2], f[3], f[4]
	if month != "*" {
		return expr
	}

	if hour == "*" && dom == "*" && dow == "*" {
		switch {
		case minute == "*":
			return "every minute"
		case strings.HasPrefix(minute, "*/"):
			if n, ok := number(minute[2:]); ok {
				return fmt.Sprintf("every %d minutes", n)
			}
		default:
			if m, ok := number(minute); ok {
				return fmt.Sprintf("at minute %d of every hour", m)
			}
		}
		return expr
	}

	m, ok := number(minute)
	if !ok {
		return expr
	}
	if strings.HasPrefix(hour, "*/") && dom == "*" && dow == "*" {
		if n, ok := number(hour[2:]); ok {
			return fmt.Sprintf("every %d hours at minute %d", n, m)
		}
		return expr
	}
	h, ok := number(hour)
	if !ok {
		return expr
	}
	clock := fmt.Sprintf("%02d:%02d", h, m)

	switch {
	case dom == "*" && dow == "*":
		return "every day at " + clock
	case dom == "*":
		if d, ok := number(dow); ok && d >= 0 && d <= 7 {
			return fmt.Sprintf("every %s at %s", weekdays[d%7], clock)
		}
		if dow == "1-5" {
			return "every weekday at " + clock
		}
	case dow == "*":
		if d, ok := number(dom); ok {
			return fmt.Sprintf("on day %d of every month at %s", d, clock)
		}
	}
	return expr
}

func number(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil && n >= 0
}
