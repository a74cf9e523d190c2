package imports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
)

// csvRow is one parsed line of an items import file. All fields arrive as raw
// text; resolution against the database happens in the consumer.
type csvRow struct {
	Line         int
	Name         string
	Description  string
	PurchaseDate string
	Location     string
	Manager      string
	Owner        string
	Status       string
}

var requiredColumns = []string{"name", "location"}

// readRows parses a header-row CSV. Malformed lines are reported in the
// aggregated error and skipped; they never abort the rest of the file.
func readRows(r io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := map[string]int{}
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}

	var rows []csvRow
	var rowErrs error
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("line %d: %w", line, err))
			continue
		}

		rows = append(rows, csvRow{
			Line:         line,
			Name:         field(record, columns, "name"),
			Description:  field(record, columns, "description"),
			PurchaseDate: field(record, columns, "purchase_date"),
			Location:     field(record, columns, "location"),
			Manager:      field(record, columns, "manager"),
			Owner:        field(record, columns, "owner"),
			Status:       field(record, columns, "status"),
		})
	}
	return rows, rowErrs
}

func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
