package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Field aliases accepted in import records, in lookup order.
var (
	roomIDAliases    = []string{"room_id", "roomId", "lab_id", "labId"}
	roomNameAliases  = []string{"room_name", "roomName", "room", "lab", "lab_name", "labName"}
	periodAliases    = []string{"period", "section"}
	plannedAliases   = []string{"planned", "headcount"}
	classNameAliases = []string{"class_names", "classNames", "classes"}
	courseAliases    = []string{"course_name", "courseName", "course"}
	teacherAliases   = []string{"teacher_name", "teacherName", "teacher"}
	contentAliases   = []string{"content"}
	capacityAliases  = []string{"capacity"}
	durationAliases  = []string{"duration"}
	dateAliases      = []string{"date"}
)

// NormalizeImportRecord converts a loosely typed import record into a
// RowInput. Numbers may arrive as JSON numbers or numeric strings. A "room"
// style field holding a number is treated as a room id. Any allow_overflow
// field is ignored because it is always derived.
func NormalizeImportRecord(record map[string]any) (RowInput, error) {
	vErr := &ValidationError{}
	var row RowInput

	if key, value, ok := lookup(record, roomIDAliases); ok {
		if id, err := toInt(value); err != nil {
			vErr.add(key, "room id must be an integer")
		} else {
			row.RoomID = &id
		}
	}
	if key, value, ok := lookup(record, roomNameAliases); ok && row.RoomID == nil {
		switch v := value.(type) {
		case string:
			row.RoomName = strings.TrimSpace(v)
		case float64, int, int64, json.Number:
			id, err := toInt(v)
			if err != nil {
				vErr.add(key, "room must be a name or an integer id")
			} else {
				row.RoomID = &id
			}
		default:
			vErr.add(key, "room must be a name or an integer id")
		}
	}

	if _, value, ok := lookup(record, dateAliases); ok {
		row.Date = toString(value)
	}
	if key, value, ok := lookup(record, periodAliases); ok {
		period, err := toInt(value)
		if err != nil {
			vErr.add(key, "period must be an integer")
		}
		row.Period = period
	}
	if _, value, ok := lookup(record, courseAliases); ok {
		row.CourseName = toString(value)
	}
	if _, value, ok := lookup(record, teacherAliases); ok {
		row.TeacherName = toString(value)
	}
	if _, value, ok := lookup(record, contentAliases); ok {
		if s := toString(value); s != "" {
			row.Content = &s
		}
	}
	if _, value, ok := lookup(record, classNameAliases); ok {
		if s := classListString(value); s != "" {
			row.ClassNames = &s
		}
	}

	intField := func(aliases []string, label string) *int {
		key, value, ok := lookup(record, aliases)
		if !ok {
			return nil
		}
		n, err := toInt(value)
		if err != nil {
			vErr.add(key, label+" must be an integer")
			return nil
		}
		return &n
	}
	row.Planned = intField(plannedAliases, "planned")
	row.Capacity = intField(capacityAliases, "capacity")
	row.Duration = intField(durationAliases, "duration")

	if vErr.HasErrors() {
		return RowInput{}, vErr
	}
	return row, nil
}

// ImportRecords normalizes records and applies them with UpsertRows. Records
// that cannot be normalized are reported with their original index and the
// rest are still applied.
func (s *TimetableService) ImportRecords(ctx context.Context, records []map[string]any, dryRun bool) (UpsertResult, error) {
	rows := make([]RowInput, 0, len(records))
	indexes := make([]int, 0, len(records))
	var rejected []RowError

	for i, record := range records {
		row, err := NormalizeImportRecord(record)
		if err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				rejected = append(rejected, validationRowErrors(i, vErr)...)
				continue
			}
			rejected = append(rejected, errorToRowError(i, err))
			continue
		}
		rows = append(rows, row)
		indexes = append(indexes, i)
	}

	result, err := s.UpsertRows(ctx, rows, dryRun)
	if err != nil {
		return result, err
	}

	for i := range result.Rows {
		result.Rows[i].Index = indexes[result.Rows[i].Index]
	}
	for i := range result.Errors {
		result.Errors[i].Index = indexes[result.Errors[i].Index]
	}
	result.Errors = append(result.Errors, rejected...)
	sort.SliceStable(result.Errors, func(i, j int) bool { return result.Errors[i].Index < result.Errors[j].Index })
	return result, nil
}

func lookup(record map[string]any, aliases []string) (string, any, bool) {
	for _, key := range aliases {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return key, value, true
	}
	return "", nil, false
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, err
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// classListString accepts either a delimited string or a JSON array of names.
func classListString(value any) string {
	switch v := value.(type) {
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			if name := toString(item); name != "" {
				names = append(names, name)
			}
		}
		return strings.Join(names, ",")
	case []string:
		return strings.Join(v, ",")
	default:
		return toString(v)
	}
}
