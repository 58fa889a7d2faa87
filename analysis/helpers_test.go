package analysis

import (
	"time"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

func at(day, hour int) time.Time { return time.Date(2023, time.May, day, hour, 0, 0, 0, time.UTC) }

func rec(caller, called string, typ cdr.CallType, dur int, ts time.Time, loc string) cdr.Record {
	return cdr.Record{
		CallerNumber: caller,
		CalledNumber: called,
		CallType:     typ,
		Duration:     dur,
		Timestamp:    ts,
		Location:     loc,
		UploadID:     "batch",
	}
}

func withIMEI(r cdr.Record, imei string) cdr.Record {
	r.IMEI = imei
	return r
}

func withCoords(r cdr.Record, lat, lng float64) cdr.Record {
	r.Latitude, r.Longitude = &lat, &lng
	return r
}

// fixture mixes every call type, locations, coordinates and IMEIs.
func fixture() []cdr.Record {
	return []cdr.Record{
		withIMEI(withCoords(rec("A", "B", cdr.CallOutgoing, 60, at(1, 9), "T1"), 24.80, 67.00), "111"),
		withIMEI(rec("A", "B", cdr.CallOutgoing, 120, at(1, 10), "T1"), "111"),
		withIMEI(rec("A", "C", cdr.CallIncoming, 30, at(1, 11), "T2"), "222"),
		rec("A", "C", cdr.SMSSent, 0, at(2, 8), "T2"),
		rec("A", "D", cdr.SMSReceived, 0, at(2, 9), "T1"),
		withCoords(rec("E", "B", cdr.CallIncoming, 3700, at(3, 14), "T3"), 24.90, 67.10),
		rec("E", "", cdr.CallOutgoing, 10, at(3, 15), "T1"),
		rec("E", "B", cdr.CallOutgoing, 15, at(4, 16), "T3"),
	}
}
