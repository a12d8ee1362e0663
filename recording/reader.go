package recording

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// QueryParams narrows and pages a table query.
type QueryParams struct {
	// Where is an optional condition with ? placeholders bound to Args.
	Where string
	Args  []interface{}

	// Limit caps the number of returned rows. Zero means no limit.
	Limit  int
	Offset int

	// OrderBy is an optional ordering clause body.
	OrderBy string
}

// SQLiteReader reads typed rows back from a results database.
type SQLiteReader struct {
	*sql.DB

	tables map[string]reflect.Type
}

// NewReader opens a database written by NewRecorder. The ".sqlite3" suffix
// is appended when path does not already carry it.
func NewReader(path string) *SQLiteReader {
	filename := path
	if !strings.HasSuffix(filename, ".sqlite3") {
		filename += ".sqlite3"
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	return &SQLiteReader{
		DB:     db,
		tables: make(map[string]reflect.Type),
	}
}

// MapTable declares the struct type that rows of a table scan into. The
// sample's fields must match the table's columns by name.
func (r *SQLiteReader) MapTable(tableName string, sampleEntry interface{}) {
	r.tables[tableName] = reflect.TypeOf(sampleEntry)
}

// ListTables returns the table names present in the database.
func (r *SQLiteReader) ListTables() []string {
	rows, err := r.DB.Query(
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name;")
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			panic(err)
		}
		names = append(names, name)
	}

	return names
}

// Query returns the rows of a mapped table matching params, plus the total
// number of rows that match ignoring Limit and Offset.
func (r *SQLiteReader) Query(
	tableName string,
	params QueryParams,
) ([]interface{}, int) {
	structType, ok := r.tables[tableName]
	if !ok {
		panic(fmt.Errorf("table %s is not mapped", tableName))
	}

	query := "SELECT * FROM " + tableName
	countQuery := "SELECT COUNT(*) FROM " + tableName
	if params.Where != "" {
		query += " WHERE " + params.Where
		countQuery += " WHERE " + params.Where
	}
	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d",
			params.Limit, params.Offset)
	}

	rows, err := r.DB.Query(query, params.Args...)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	entries := r.scanRows(rows, structType)
	total := r.queryTotalCount(countQuery, params.Args)

	return entries, total
}

func (r *SQLiteReader) scanRows(
	rows *sql.Rows,
	structType reflect.Type,
) []interface{} {
	columns, err := rows.Columns()
	if err != nil {
		panic(err)
	}

	fieldIndex := make(map[string]int, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		fieldIndex[structType.Field(i).Name] = i
	}

	var entries []interface{}
	for rows.Next() {
		entry := reflect.New(structType).Elem()

		dest := make([]interface{}, len(columns))
		for i, col := range columns {
			idx, ok := fieldIndex[col]
			if !ok {
				panic(fmt.Errorf("column %s has no field in %s",
					col, structType.Name()))
			}
			dest[i] = entry.Field(idx).Addr().Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			panic(err)
		}

		entries = append(entries, entry.Interface())
	}

	return entries
}

func (r *SQLiteReader) queryTotalCount(
	countQuery string,
	args []interface{},
) int {
	var total int
	err := r.DB.QueryRow(countQuery, args...).Scan(&total)
	if err != nil {
		panic(err)
	}
	return total
}
