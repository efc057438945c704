package feed

import (
	"io"
	"time"

	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
)

const (
	ICSContentType = "text/calendar; charset=utf-8"
	icsStampLayout = "20060102T150405Z"
)

// ICSWriter streams a VCALENDAR with one VEVENT per appointment. Lines are
// joined with CRLF and the last line has no terminator.
type ICSWriter struct {
	w     io.Writer
	stamp string
	first bool
	err   error
}

func NewICSWriter(w io.Writer, now time.Time) *ICSWriter {
	c := &ICSWriter{w: w, stamp: now.UTC().Format(icsStampLayout), first: true}
	c.lines("BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//BookingSaaS//EN")
	return c
}

func (c *ICSWriter) Event(a model.Appointment) error {
	c.lines(
		"BEGIN:VEVENT",
		"UID:"+a.ID+"@bookingsaas",
		"DTSTAMP:"+c.stamp,
		"DTSTART:"+a.Start.UTC().Format(icsStampLayout),
		"DTEND:"+a.End.UTC().Format(icsStampLayout),
		"SUMMARY:Appointment",
		"END:VEVENT",
	)
	return c.err
}

func (c *ICSWriter) Close() error {
	c.lines("END:VCALENDAR")
	return c.err
}

func (c *ICSWriter) lines(lines ...string) {
	for _, l := range lines {
		if c.err != nil {
			return
		}
		if !c.first {
			l = "\r\n" + l
		}
		c.first = false
		_, c.err = io.WriteString(c.w, l)
	}
}
