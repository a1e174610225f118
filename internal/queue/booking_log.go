package queue

import (
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"
)

// BookingLog appends confirmed bookings to <Dir>/booking.log, one line
// per event.
type BookingLog struct {
    Dir string

    mu sync.Mutex
}

// NewBookingLog returns a log writing under dir ("logs" when empty).
func NewBookingLog(dir string) *BookingLog {
    if dir == "" {
        dir = "logs"
    }
    return &BookingLog{Dir: dir}
}

// Path is the file the log appends to.
func (l *BookingLog) Path() string { return filepath.Join(l.Dir, "booking.log") }

// FormatLine renders ev as a single human-friendly line.
func FormatLine(ev BookingConfirmedEvent) string {
    addOns := "[]"
    if len(ev.AddOns) > 0 {
        addOns = fmt.Sprintf("[%s]", strings.Join(ev.AddOns, ","))
    }
    return fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | user_id=%s | location=%q | slot=%s | date=%s | hours=%d | total=%d cents | add_ons=%s\n",
        ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.LocationName, ev.SlotNumber, ev.BookingDate, ev.DurationHours, ev.TotalCents, addOns)
}

// Append writes ev to the log file.
func (l *BookingLog) Append(ev BookingConfirmedEvent) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    if err := os.MkdirAll(l.Dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", l.Dir, err)
    }
    f, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// HandleMessage decodes a broker message body and appends it.
func (l *BookingLog) HandleMessage(body []byte) error {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    return l.Append(ev)
}
