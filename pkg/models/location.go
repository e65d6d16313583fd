package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"geolocation-client/pkg/geodata"
)

// Location is one persisted geolocation lookup.
type Location struct {
	bun.BaseModel `bun:"table:locations,alias:l"`

	ID         int64  `bun:",pk,autoincrement"`
	SessionID  string `bun:",notnull,unique"`
	IP         string `bun:",notnull"`
	Country    string
	City       string
	Latitude   float64
	Longitude  float64
	Timezone   string
	UTCOffset  int
	DurationMs int64
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// LocationFromResult converts a completed driver result into its
// persistence record.
func LocationFromResult(sessionID uuid.UUID, r geodata.Result, took time.Duration) *Location {
	return &Location{
		SessionID:  sessionID.String(),
		IP:         r.IP,
		Country:    r.Country,
		City:       r.City,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Timezone:   r.TimeZone.Name,
		UTCOffset:  r.TimeZone.OffsetSeconds,
		DurationMs: took.Milliseconds(),
	}
}
