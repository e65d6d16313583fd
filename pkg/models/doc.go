/*
Package models defines the persistence-layer data structures of
geolocation-client.

Location records one completed geolocation lookup: the session UUID the
driver assigned, the resolved IP, country, city, coordinates, timezone name
and UTC offset, plus how long the request took. Records are written by the
database package after a successful session and are never mutated.

The core request/response value types (Result, TimeZone, the response
Schema) live in pkg/geodata; this package only holds what crosses the
database boundary.
*/
package models
