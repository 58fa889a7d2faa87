// Package cdr holds the canonical call detail record shape shared by the
// normalizer, the parser and the analyzers.
package cdr

import (
	"regexp"
	"strings"
	"time"
)

/* ──────────── canonical column vocabulary ──────────── */

const (
	FieldAParty       = "A-Party"
	FieldBParty       = "B-Party"
	FieldIMEI         = "IMEI"
	FieldCallType     = "Call Type"
	FieldDuration     = "Duration"
	FieldDateTime     = "Date And Time"
	FieldDate         = "Date"
	FieldTime         = "Time"
	FieldSiteLocation = "SiteLocation"
	FieldLatitude     = "Latitude"
	FieldLongitude    = "Longitude"
)

// Fields lists the canonical vocabulary in display order.
var Fields = []string{
	FieldAParty, FieldBParty, FieldIMEI, FieldCallType, FieldDuration,
	FieldDateTime, FieldDate, FieldTime, FieldSiteLocation, FieldLatitude, FieldLongitude,
}

// RawRow maps a column label to its raw cell text. Numeric cells carry their
// unformatted numeric text (e.g. "45123.5" for an Excel serial date).
type RawRow map[string]string

// Table is a header plus rows, keeping the column order of the source sheet.
type Table struct {
	Header []string
	Rows   []RawRow
}

/* ──────────── call type ──────────── */

type CallType string

const (
	CallOutgoing CallType = "call_outgoing"
	CallIncoming CallType = "call_incoming"
	SMSSent      CallType = "sms_sent"
	SMSReceived  CallType = "sms_received"
)

func (t CallType) IsCall() bool { return t == CallOutgoing || t == CallIncoming }
func (t CallType) IsSMS() bool  { return t == SMSSent || t == SMSReceived }

// IsOutgoing reports whether the subscriber originated the event.
func (t CallType) IsOutgoing() bool { return t == CallOutgoing || t == SMSSent }

/* ──────────── record ──────────── */

// Record is one normalized call or SMS event. Records are never mutated once
// the parser has built them.
type Record struct {
	CallerNumber string    `json:"callerNumber" csv:"caller_number"`
	CalledNumber string    `json:"calledNumber" csv:"called_number"`
	IMEI         string    `json:"imei" csv:"imei"`
	CallType     CallType  `json:"callType" csv:"call_type"`
	Duration     int       `json:"duration" csv:"duration"`
	Timestamp    time.Time `json:"timestamp" csv:"timestamp"`
	Location     string    `json:"location,omitempty" csv:"location"`
	Latitude     *float64  `json:"latitude,omitempty" csv:"latitude"`
	Longitude    *float64  `json:"longitude,omitempty" csv:"longitude"`
	UploadID     string    `json:"uploadId" csv:"upload_id"`
}

// HasCoordinates is true only when both latitude and longitude are set.
func (r Record) HasCoordinates() bool { return r.Latitude != nil && r.Longitude != nil }

// Counterpart returns the called number, or the caller when no called number
// was recorded.
func (r Record) Counterpart() string {
	if r.CalledNumber != "" {
		return r.CalledNumber
	}
	return r.CallerNumber
}

/* ──────────── helpers ──────────── */

var spaceRE = regexp.MustCompile(`\s+`)

// Norm lower-cases, trims and collapses inner whitespace of a header label.
func Norm(s string) string { return spaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ") }

// Clean strips the quotes and padding spreadsheet exports wrap values in.
func Clean(s string) string { return strings.Trim(s, "'\" \t\r\n") }
