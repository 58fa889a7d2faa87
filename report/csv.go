package report

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

// WriteRecordsCSV writes records with a header row taken from the csv tags
// on cdr.Record. An empty batch still gets the header.
func WriteRecordsCSV(w io.Writer, records []cdr.Record) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	var err error
	if len(records) == 0 {
		err = enc.EncodeHeader(cdr.Record{})
	} else {
		err = enc.Encode(records)
	}
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
