package model

import (
    "strings"
)

// Rate units a location can be priced in.
const (
    RateHourly = "hourly"
    RateDaily  = "daily"
)

// Slot types.
const (
    SlotStandard = "standard"
    SlotCompact  = "compact"
    SlotPremium  = "premium"
    SlotEV       = "ev"
)

// Location represents a bookable parking facility as stored in the
// `locations` table together with its slots and reviews.  The derived
// fields (HourlyRateCents, Rating, ReviewCount, AvailableSlots) are filled in by the
// catalog when the location is loaded and are never written back.
//
// Fields:
//  ID             – opaque, unique identifier used as the sole lookup key.
//  Name/Address   – display fields, also used by free-text search.
//  RateCents      – positive price in cents per RateUnit.
//  RateUnit       – "hourly" or "daily".
//  Secure         – facility has security staff or monitoring.
//  Amenities      – comma-separated amenity tags.
//  Images         – ordered list of image URLs.
type Location struct {
    ID              string   `json:"id"`
    Name            string   `json:"name"`
    Address         string   `json:"address"`
    Description     string   `json:"description,omitempty"`
    OperatingHours  string   `json:"operating_hours,omitempty"`
    ContactPhone    string   `json:"contact_phone,omitempty"`
    RateCents       int64    `json:"rate_cents"`
    RateUnit        string   `json:"rate_unit"`
    HourlyRateCents int64    `json:"hourly_rate_cents"`
    Secure          bool     `json:"secure"`
    Amenities       string   `json:"amenities"`
    Rating          float64  `json:"rating"`
    ReviewCount     int      `json:"review_count"`
    AvailableSlots  int      `json:"available_slots"`
    Images          []string `json:"images"`
    Slots           []Slot   `json:"slots"`
    Reviews         []Review `json:"reviews"`
}

// Slot is a single parking space within a Location.  ID is unique within
// its parent location only.
type Slot struct {
    ID        string   `json:"id"`
    Number    string   `json:"number"`
    Type      string   `json:"type"`
    Available bool     `json:"available"`
    Features  []string `json:"features"`
}

// Review is a customer review attached to a location.
type Review struct {
    ID      uint64 `json:"id"`
    Author  string `json:"author"`
    Rating  int    `json:"rating"`
    Comment string `json:"comment"`
    Date    string `json:"date"`
}

// Tags splits the comma-separated amenity list into trimmed, non-empty tags.
func (l Location) Tags() []string {
    out := []string{}
    for _, t := range strings.Split(l.Amenities, ",") {
        if t = strings.TrimSpace(t); t != "" {
            out = append(out, t)
        }
    }
    return out
}

// Covered reports whether any amenity tag mentions covered parking.
func (l Location) Covered() bool {
    for _, t := range l.Tags() {
        if strings.Contains(strings.ToLower(t), "covered") {
            return true
        }
    }
    return false
}

// HasEV reports whether the location offers EV charging, either through an
// "ev" slot or an amenity tag containing the word EV.
func (l Location) HasEV() bool {
    for _, s := range l.Slots {
        if s.Type == SlotEV {
            return true
        }
    }
    for _, t := range l.Tags() {
        for _, w := range strings.Fields(t) {
            if strings.EqualFold(w, "ev") {
                return true
            }
        }
    }
    return false
}

// Slot returns the slot with the given id.
func (l Location) Slot(id string) (Slot, bool) {
    for _, s := range l.Slots {
        if s.ID == id {
            return s, true
        }
    }
    return Slot{}, false
}

// Dollars converts cents into a decimal amount for display.
func Dollars(cents int64) float64 {
    return float64(cents) / 100.0
}
