package postgres

import (
	"reflect"
	"sync"
)

// dbField is one struct field mapped to a column through its "db" tag.
type dbField struct {
	index  int
	column string
}

// dbFieldCache holds map[reflect.Type][]dbField.
var dbFieldCache sync.Map

// dbFields returns the tagged fields of a flat struct type. Untagged fields
// and `db:"-"` are skipped. Row types in this module do not embed structs.
func dbFields(t reflect.Type) []dbField {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := dbFieldCache.Load(t); ok {
		return cached.([]dbField)
	}

	var fields []dbField
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			tag := t.Field(i).Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			fields = append(fields, dbField{index: i, column: tag})
		}
	}
	dbFieldCache.Store(t, fields)
	return fields
}

// ExtractDBColumns lists the columns of T in field order, for package-level
// select lists:
//
//	unitCols = ExtractDBColumns[catalog.SellableUnit]()
func ExtractDBColumns[T any]() []string {
	fields := dbFields(reflect.TypeOf((*T)(nil)).Elem())
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.column
	}
	return cols
}

// StructToMap maps column names to field values, for squirrel SetMap.
// It returns nil for anything that is not a struct or struct pointer.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	fields := dbFields(rv.Type())
	res := make(map[string]any, len(fields))
	for _, f := range fields {
		res[f.column] = rv.Field(f.index).Interface()
	}
	return res
}
