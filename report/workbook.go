// Package report renders a batch and its analysis results as an xlsx workbook
// or its records as csv.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jalad-shrimali/cdr-insight/analysis"
	"github.com/jalad-shrimali/cdr-insight/cdr"
)

const timeLayout = "2006-01-02 15:04:05"

// Workbook builds one sheet for the records and one per result present in
// results, in analysis.Types order.
func Workbook(records []cdr.Record, results map[analysis.Type]any) (*excelize.File, error) {
	x := excelize.NewFile()
	var failed error
	add := func(name string, rows [][]string) {
		if failed != nil {
			return
		}
		idx, err := x.NewSheet(name)
		if err != nil {
			failed = fmt.Errorf("sheet %s: %w", name, err)
			return
		}
		for r, row := range rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := x.SetCellStr(name, cell, v); err != nil {
					failed = fmt.Errorf("sheet %s %s: %w", name, cell, err)
					return
				}
			}
		}
		if name == "records" {
			x.SetActiveSheet(idx)
		}
	}

	add("records", recordRows(records))
	for _, t := range analysis.Types {
		res, ok := results[t]
		if !ok {
			continue
		}
		switch v := res.(type) {
		case analysis.Rankings:
			add("outgoing_calls", rankRows(v.OutgoingCalls))
			add("incoming_calls", rankRows(v.IncomingCalls))
			add("outgoing_sms", rankRows(v.OutgoingSMS))
			add("incoming_sms", rankRows(v.IncomingSMS))
		case []analysis.RankEntry:
			add(string(t), rankRows(v))
		case []analysis.Site:
			add(string(t), siteRows(v))
		case []analysis.LocationChange:
			add(string(t), changeRows(v))
		case []analysis.MobilityProfile:
			add(string(t), mobilityRows(v))
		case []analysis.DeviceHistory:
			add(string(t), imeiRows(v))
		case analysis.Stats:
			add(string(t), dailyRows(v))
		default:
			return nil, fmt.Errorf("no sheet layout for %s (%T)", t, res)
		}
	}
	if failed != nil {
		return nil, failed
	}
	x.DeleteSheet("Sheet1")
	return x, nil
}

// WriteWorkbook writes the Workbook for records and results to w.
func WriteWorkbook(w io.Writer, records []cdr.Record, results map[analysis.Type]any) error {
	x, err := Workbook(records, results)
	if err != nil {
		return err
	}
	defer x.Close()
	_, err = x.WriteTo(w)
	return err
}

/* ──────────── sheet layouts ──────────── */

func recordRows(records []cdr.Record) [][]string {
	rows := [][]string{{"A-Party", "B-Party", "IMEI", "Call Type", "Duration", "Date And Time", "SiteLocation", "Latitude", "Longitude"}}
	for _, r := range records {
		rows = append(rows, []string{
			r.CallerNumber, r.CalledNumber, r.IMEI, string(r.CallType), strconv.Itoa(r.Duration),
			r.Timestamp.UTC().Format(timeLayout), r.Location, coord(r.Latitude), coord(r.Longitude),
		})
	}
	return rows
}

func rankRows(list []analysis.RankEntry) [][]string {
	rows := [][]string{{"Rank", "Number", "Value", "Display"}}
	for _, e := range list {
		rows = append(rows, []string{strconv.Itoa(e.Rank), e.Number, strconv.Itoa(e.Value), e.DisplayValue})
	}
	return rows
}

func siteRows(list []analysis.Site) [][]string {
	rows := [][]string{{
		"Location", "Latitude", "Longitude", "Interactions", "Calls", "SMS", "Incoming Calls", "Outgoing Calls",
		"SMS Sent", "SMS Received", "Total Duration", "Unique Numbers", "First Seen", "Last Seen",
		"Peak Hour", "Peak Day", "Activity Score",
	}}
	for _, s := range list {
		rows = append(rows, []string{
			s.Location, coord(s.Latitude), coord(s.Longitude), strconv.Itoa(s.Interactions),
			strconv.Itoa(s.Calls), strconv.Itoa(s.SMS), strconv.Itoa(s.IncomingCalls), strconv.Itoa(s.OutgoingCalls),
			strconv.Itoa(s.SMSSent), strconv.Itoa(s.SMSReceived), s.DisplayDuration, strconv.Itoa(s.UniqueNumbers),
			stamp(s.FirstSeen), stamp(s.LastSeen), strconv.Itoa(s.PeakHour), s.PeakDay, strconv.Itoa(s.ActivityScore),
		})
	}
	return rows
}

func changeRows(list []analysis.LocationChange) [][]string {
	rows := [][]string{{
		"Subscriber", "Change Time", "From", "To", "Distance (km)", "Incoming Calls", "Outgoing Calls",
		"SMS Sent", "SMS Received", "Talk Time", "Top Contact", "Unique Contacts", "Stay",
	}}
	for _, c := range list {
		a := c.Activity
		rows = append(rows, []string{
			c.Subscriber, stamp(c.ChangeTime), c.FromLocation, c.ToLocation, km(c.DistanceKm),
			strconv.Itoa(a.IncomingCalls), strconv.Itoa(a.OutgoingCalls), strconv.Itoa(a.SMSSent),
			strconv.Itoa(a.SMSReceived), a.DisplayDuration, a.TopContact, strconv.Itoa(a.UniqueContacts), a.DisplayStay,
		})
	}
	return rows
}

func mobilityRows(list []analysis.MobilityProfile) [][]string {
	rows := [][]string{{
		"Subscriber", "Total Changes", "Unique Locations", "Total Calls", "Mobility", "First Seen", "Last Seen", "Route",
	}}
	for _, m := range list {
		route := make([]string, 0, len(m.Changes))
		for _, mv := range m.Changes {
			route = append(route, mv.FromLocation+" > "+mv.ToLocation)
		}
		rows = append(rows, []string{
			m.Subscriber, strconv.Itoa(m.TotalChanges), strconv.Itoa(m.UniqueLocations), strconv.Itoa(m.TotalCalls),
			string(m.MobilityLevel), stamp(m.FirstSeen), stamp(m.LastSeen), strings.Join(route, "; "),
		})
	}
	return rows
}

func imeiRows(list []analysis.DeviceHistory) [][]string {
	rows := [][]string{{"Number", "From IMEI", "To IMEI", "Change Time", "Calls", "Total Duration", "SMS Sent", "SMS Received"}}
	for _, h := range list {
		for _, c := range h.Changes {
			rows = append(rows, []string{
				h.Number, c.FromIMEI, c.ToIMEI, stamp(c.ChangeTime), strconv.Itoa(c.Calls),
				analysis.FormatDuration(c.TotalDuration), strconv.Itoa(c.SMSSent), strconv.Itoa(c.SMSReceived),
			})
		}
	}
	return rows
}

func dailyRows(s analysis.Stats) [][]string {
	rows := [][]string{{"Date", "Incoming Calls", "Outgoing Calls", "SMS Sent", "SMS Received", "Total"}}
	for _, d := range s.Daily {
		rows = append(rows, []string{
			d.Date, strconv.Itoa(d.IncomingCalls), strconv.Itoa(d.OutgoingCalls),
			strconv.Itoa(d.SMSSent), strconv.Itoa(d.SMSReceived), strconv.Itoa(d.Total),
		})
	}
	return rows
}

func coord(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 6, 64)
}

func km(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
