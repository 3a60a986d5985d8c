package source

import (
	"bytes"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"holidaycal/internal/model"
)

//go:embed data/*.csv
var embedded embed.FS

const (
	defaultFixedCSV = "data/fixed_holidays.csv"
	defaultLunarCSV = "data/lunar_holidays.csv"
)

// table is a header-addressed CSV: cells are looked up by column name.
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	header, err := rd.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &table{columns: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		t.columns[h] = i
	}
	for _, name := range required {
		if _, ok := t.columns[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", model.ErrInvalidRule, name)
		}
	}

	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func (t *table) cell(row []string, name string) string {
	i, ok := t.columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) number(row []string, name string, line int) (int, error) {
	v := t.cell(row, name)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q is not a number", model.ErrInvalidRule, line, name, v)
	}
	return n, nil
}

// ParseFixedCSV reads rows of name,month,day[,description].
func ParseFixedCSV(r io.Reader) ([]model.FixedRule, error) {
	t, err := readTable(r, "name", "month", "day")
	if err != nil {
		return nil, err
	}
	rules := make([]model.FixedRule, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		month, err := t.number(row, "month", line)
		if err != nil {
			return nil, err
		}
		day, err := t.number(row, "day", line)
		if err != nil {
			return nil, err
		}
		rule := model.FixedRule{
			Title:       t.cell(row, "name"),
			Description: t.cell(row, "description"),
			Month:       time.Month(month),
			Day:         day,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseLunarCSV reads rows of name,lunar_month,lunar_day[,description][,leap].
// lunar_day may be "last" for the final day of the lunar month.
func ParseLunarCSV(r io.Reader) ([]model.LunarRule, error) {
	t, err := readTable(r, "name", "lunar_month", "lunar_day")
	if err != nil {
		return nil, err
	}
	rules := make([]model.LunarRule, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		month, err := t.number(row, "lunar_month", line)
		if err != nil {
			return nil, err
		}
		var day int
		if strings.EqualFold(t.cell(row, "lunar_day"), "last") {
			day = model.LastDay
		} else if day, err = t.number(row, "lunar_day", line); err != nil {
			return nil, err
		}
		leap, err := parseFlag(t.cell(row, "leap"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", model.ErrInvalidRule, line, err)
		}
		rule := model.LunarRule{
			Title:       t.cell(row, "name"),
			Description: t.cell(row, "description"),
			Month:       month,
			Day:         day,
			Leap:        leap,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseFlag(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y", "闰":
		return true, nil
	}
	return false, fmt.Errorf("leap flag %q", v)
}

// LoadFixed reads the fixed table at path, or the embedded default when path is empty.
func LoadFixed(path string) ([]model.FixedRule, error) {
	data, err := readOrDefault(path, defaultFixedCSV)
	if err != nil {
		return nil, err
	}
	rules, err := ParseFixedCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fixed holidays %s: %w", describe(path, defaultFixedCSV), err)
	}
	return rules, nil
}

// LoadLunar reads the lunar table at path, or the embedded default when path is empty.
func LoadLunar(path string) ([]model.LunarRule, error) {
	data, err := readOrDefault(path, defaultLunarCSV)
	if err != nil {
		return nil, err
	}
	rules, err := ParseLunarCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lunar holidays %s: %w", describe(path, defaultLunarCSV), err)
	}
	return rules, nil
}

func readOrDefault(path, fallback string) ([]byte, error) {
	if path == "" {
		return embedded.ReadFile(fallback)
	}
	return os.ReadFile(path)
}

func describe(path, fallback string) string {
	if path == "" {
		return "(embedded " + fallback + ")"
	}
	return path
}
