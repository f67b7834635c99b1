package donations

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"almsdesk/internal/normalize"
	"almsdesk/internal/ports"
)

var ErrNoHeader = errors.New("csv file has no header row")

// headerAliases maps the column spellings seen in the wild onto canonical
// field keys. Unknown columns are ignored.
var headerAliases = map[string]string{
	"first":          "first",
	"first name":     "first",
	"firstname":      "first",
	"fname":          "first",
	"last":           "last",
	"last name":      "last",
	"lastname":       "last",
	"lname":          "last",
	"surname":        "last",
	"email":          "email",
	"e-mail":         "email",
	"email address":  "email",
	"address":        "street",
	"address1":       "street",
	"street":         "street",
	"street address": "street",
	"zip":            "zip",
	"zipcode":        "zip",
	"zip code":       "zip",
	"postal code":    "zip",
	"amount":         "amount",
	"gift amount":    "amount",
	"date":           "date",
	"gift date":      "date",
	"fund":           "fund",
	"method":         "method",
	"payment method": "method",
	"check number":   "check",
	"check no":       "check",
	"check #":        "check",
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006"}

type csvRow struct {
	line  int
	input ports.DonationInput
}

// parseCSV reads the whole file, returning normalized inputs for the good
// rows and per-line errors for the bad ones. Only a missing or useless
// header aborts the parse.
func parseCSV(r io.Reader) ([]csvRow, []ports.RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, err
	}
	cols := make(map[string]int)
	for i, h := range header {
		if key, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			cols[key] = i
		}
	}
	if _, ok := cols["amount"]; !ok {
		return nil, nil, fmt.Errorf("csv header has no amount column")
	}

	var (
		rows     []csvRow
		failures []ports.RowError
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			failures = append(failures, ports.RowError{Line: line, Reason: err.Error()})
			continue
		}
		in, err := rowInput(record, cols)
		if err != nil {
			failures = append(failures, ports.RowError{Line: line, Reason: err.Error()})
			continue
		}
		rows = append(rows, csvRow{line: line, input: in})
	}
	return rows, failures, nil
}

func rowInput(record []string, cols map[string]int) (ports.DonationInput, error) {
	field := func(key string) string {
		i, ok := cols[key]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	amount, err := parseAmount(field("amount"))
	if err != nil {
		return ports.DonationInput{}, err
	}

	in := ports.DonationInput{
		Amount:      amount,
		Method:      field("method"),
		CheckNumber: field("check"),
		Fund:        field("fund"),
		First:       normalize.Name(field("first")),
		Last:        normalize.Name(field("last")),
		Email:       normalize.Email(field("email")),
		Street:      normalize.Name(field("street")),
		Zip:         normalize.Zip(field("zip")),
	}
	if raw := field("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return ports.DonationInput{}, err
		}
		in.GiftDate = parsed
	}
	return in, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(raw)
	if cleaned == "" {
		return decimal.Decimal{}, errors.New("missing amount")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad amount %q", raw)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount %q is not positive", raw)
	}
	return amount, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", raw)
}
