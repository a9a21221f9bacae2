package holdings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/seenimoa/bondrisk/pkg/utils"
)

// readCSV reads one bond per row. The first row holds the column headings;
// unknown columns are ignored.
func readCSV(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[int]string, len(header))
	hasISIN := false
	for i, h := range header {
		field := canonicalField(strings.TrimPrefix(h, "\ufeff"))
		if field == "" {
			continue
		}
		columns[i] = field
		hasISIN = hasISIN || field == fieldISIN
	}
	if !hasISIN {
		return nil, fmt.Errorf("csv header has no %s column", fieldISIN)
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		fields := make(map[string]string, len(columns))
		blank := true
		for i, v := range rec {
			field, ok := columns[i]
			if !ok {
				continue
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
			fields[field] = v
		}
		if blank {
			continue
		}
		rows = append(rows, row{line: line, fields: fields})
	}
	return rows, nil
}

// readStructured reads the top-level "bonds" list of a YAML or JSON document.
func readStructured(r io.Reader, format Format) ([]row, error) {
	v := viper.New()
	v.SetConfigType(string(format))
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	if !v.IsSet("bonds") {
		return nil, fmt.Errorf("%s document has no bonds list", format)
	}

	var items []map[string]any
	if err := v.UnmarshalKey("bonds", &items); err != nil {
		return nil, fmt.Errorf("decode bonds: %w", err)
	}

	rows := make([]row, 0, len(items))
	for i, item := range items {
		fields := make(map[string]string, len(item))
		for k, val := range item {
			if field := canonicalField(k); field != "" {
				fields[field] = stringify(val)
			}
		}
		rows = append(rows, row{line: i + 1, fields: fields})
	}
	return rows, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return utils.FormatDate(t)
	default:
		return fmt.Sprint(t)
	}
}
