package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"ClaimReserve/internal/domain/models"
	"ClaimReserve/pkg/util"
)

// ErrMalformedTable is matched by every structural problem of an uploaded table.
var ErrMalformedTable = errors.New("malformed policy table")

// TableError locates a parse failure. Line is 1-based and counts the header;
// Column is empty when the problem concerns the whole row or file.
type TableError struct {
	Line    int
	Column  string
	Message string
}

func (e *TableError) Error() string {
	switch {
	case e.Line == 0:
		return e.Message
	case e.Column == "":
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	default:
		return fmt.Sprintf("line %d, column %s: %s", e.Line, e.Column, e.Message)
	}
}

func (e *TableError) Unwrap() error { return ErrMalformedTable }

const (
	colPolicyID           = "policy_id"
	colSubscriptionLength = "subscription_length"
	colVehicleAge         = "vehicle_age"
	colCustomerAge        = "customer_age"
	colFuelType           = "fuel_type"
	colNCAPRating         = "ncap_rating"
	colClaimStatus        = "claim_status"
)

var requiredColumns = []string{
	colSubscriptionLength,
	colVehicleAge,
	colCustomerAge,
	colFuelType,
	colNCAPRating,
	colClaimStatus,
}

// CSVPolicyReader turns a delimited policy table into policies.
// Unknown columns are ignored.
type CSVPolicyReader struct {
	maxRows int
}

// NewCSVPolicyReader creates a reader. maxRows <= 0 disables the row limit.
func NewCSVPolicyReader(maxRows int) *CSVPolicyReader {
	return &CSVPolicyReader{maxRows: maxRows}
}

// Read parses the whole table. Value range checks are left to the engine.
func (r *CSVPolicyReader) Read(in io.Reader) ([]models.Policy, error) {
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &TableError{Message: "file is empty"}
	}
	if err != nil {
		return nil, csvError(err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var policies []models.Policy
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		if r.maxRows > 0 && len(policies) >= r.maxRows {
			return nil, &TableError{Line: line, Message: fmt.Sprintf("table exceeds %d rows", r.maxRows)}
		}
		p, err := parseRow(rec, index, line)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	if len(policies) == 0 {
		return nil, &TableError{Message: "table has no data rows"}
	}
	return policies, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[name]; dup && name != "" {
			return nil, &TableError{Line: 1, Column: name, Message: "duplicate column"}
		}
		index[name] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &TableError{Line: 1, Message: "missing required columns: " + strings.Join(missing, ", ")}
	}
	return index, nil
}

func parseRow(rec []string, index map[string]int, line int) (models.Policy, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	number := func(name string) (float64, error) {
		v, err := util.ParseFloat(field(name))
		if err != nil {
			return 0, &TableError{Line: line, Column: name, Message: err.Error()}
		}
		return v, nil
	}

	var (
		p   models.Policy
		err error
	)
	p.PolicyID = field(colPolicyID)
	if p.SubscriptionLength, err = number(colSubscriptionLength); err != nil {
		return p, err
	}
	if p.VehicleAge, err = number(colVehicleAge); err != nil {
		return p, err
	}
	if p.CustomerAge, err = number(colCustomerAge); err != nil {
		return p, err
	}
	if p.NCAPRating, err = number(colNCAPRating); err != nil {
		return p, err
	}
	p.FuelType = field(colFuelType)
	if p.ClaimStatus, err = util.ParseWholeNumber(field(colClaimStatus)); err != nil {
		return p, &TableError{Line: line, Column: colClaimStatus, Message: err.Error()}
	}
	return p, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &TableError{Line: pe.Line, Message: pe.Err.Error()}
	}
	return fmt.Errorf("read policy table: %w", err)
}
