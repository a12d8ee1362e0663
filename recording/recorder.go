package recording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// A Recorder stores structured rows in named tables. Implementations panic
// on failure; the Sink layer converts panics into errors.
type Recorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry. The sample must be a flat struct of integers, floats,
	// booleans, and strings.
	CreateTable(tableName string, sampleEntry interface{})

	// InsertData stages one entry for insertion. The entry must have the
	// same type as the table's sample.
	InsertData(tableName string, entry interface{})

	// ListTables returns the names of all created tables.
	ListTables() []string

	// Flush writes all staged entries out.
	Flush()

	// Close flushes and closes the underlying database.
	Close() error
}

type recorderTable struct {
	structType reflect.Type
	entries    []interface{}
}

// SQLiteRecorder buffers typed rows and writes them into a SQLite database
// file in batched transactions.
type SQLiteRecorder struct {
	*sql.DB

	filename   string
	tables     map[string]*recorderTable
	batchSize  int
	entryCount int
}

// NewRecorder creates a recorder writing to path + ".sqlite3". If path is
// empty a unique name is generated. The file must not already exist.
func NewRecorder(path string) *SQLiteRecorder {
	r := &SQLiteRecorder{
		tables:    make(map[string]*recorderTable),
		batchSize: 100000,
	}
	r.open(path)

	atexit.Register(func() { r.Flush() })

	return r
}

func (r *SQLiteRecorder) open(path string) {
	if path == "" {
		path = "ventana_run_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	r.DB = db
	r.filename = filename

	fmt.Fprintf(os.Stderr, "Results database created at %s\n", filename)
}

// Filename returns the name of the database file being written.
func (r *SQLiteRecorder) Filename() string {
	return r.filename
}

// CreateTable creates a table with columns typed after sampleEntry's fields.
func (r *SQLiteRecorder) CreateTable(tableName string, sampleEntry interface{}) {
	structType := reflect.TypeOf(sampleEntry)
	columns := make([]string, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		columns[i] = field.Name + " " + sqlColumnType(field.Type.Kind())
	}

	createStr := fmt.Sprintf("CREATE TABLE %s (%s);",
		tableName, strings.Join(columns, ", "))
	_, err := r.Exec(createStr)
	if err != nil {
		panic(err)
	}

	r.tables[tableName] = &recorderTable{
		structType: structType,
		entries:    make([]interface{}, 0, r.batchSize),
	}
}

func sqlColumnType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		return "REAL"
	case reflect.String:
		return "TEXT"
	default:
		panic(fmt.Errorf("field kind %s is not supported in a table", kind))
	}
}

// InsertData stages one entry for its table.
func (r *SQLiteRecorder) InsertData(tableName string, entry interface{}) {
	t, ok := r.tables[tableName]
	if !ok {
		panic(fmt.Errorf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Errorf("entry type %T does not match table %s",
			entry, tableName))
	}

	t.entries = append(t.entries, entry)
	r.entryCount++

	if r.entryCount >= r.batchSize {
		r.Flush()
	}
}

// ListTables returns the names of all created tables.
func (r *SQLiteRecorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	return names
}

// Flush writes all staged entries within one transaction per table.
func (r *SQLiteRecorder) Flush() {
	for tableName, t := range r.tables {
		if len(t.entries) == 0 {
			continue
		}

		stmt := r.prepareStatement(tableName, t.entries[0])
		r.mustExec("BEGIN TRANSACTION;")
		for _, entry := range t.entries {
			fields := structs.Fields(entry)
			values := make([]interface{}, len(fields))
			for i, f := range fields {
				values[i] = f.Value()
			}

			_, err := stmt.Exec(values...)
			if err != nil {
				panic(err)
			}
		}
		r.mustExec("COMMIT TRANSACTION;")

		t.entries = t.entries[:0]
	}

	r.entryCount = 0
}

func (r *SQLiteRecorder) prepareStatement(
	tableName string,
	sampleEntry interface{},
) *sql.Stmt {
	names := structs.Names(sampleEntry)
	placeholders := make([]string, len(names))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	insertStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		tableName,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "))

	stmt, err := r.Prepare(insertStr)
	if err != nil {
		panic(err)
	}

	return stmt
}

func (r *SQLiteRecorder) mustExec(query string) {
	_, err := r.Exec(query)
	if err != nil {
		panic(err)
	}
}

// Close flushes staged entries and closes the database file.
func (r *SQLiteRecorder) Close() error {
	r.Flush()
	return r.DB.Close()
}
