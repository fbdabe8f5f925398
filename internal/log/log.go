// Package log provides the audit log for spi operations.
// Logs are stored in ~/.spi/log/spi-log.db and record every CLI command
// and MCP tool invocation that touches a registry.
//
// # Fluent API
//
// Use the fluent builder API to construct and write log entries:
//
//	log.Event("inspect:get", "construct").
//		Point(point).
//		Name(name).
//		Write(err)
//
//	log.Event("inspect:activate", "activate").
//		Point(point).
//		Detail("group", group).
//		Detail("count", len(active)).
//		Write(err)
//
// The source parameter follows the format "{plugin}:{command}" for CLI
// commands or "mcp:{tool}" for MCP tools. Examples: "inspect:ls",
// "gen:gen", "mcp:spi_get".
package log

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	global *Logger
	mu     sync.Mutex

	// run identifies this process in every entry it writes.
	run = uuid.NewString()
)

// Entry represents a single log entry.
type Entry struct {
	Source string // e.g., "inspect:get", "mcp:spi_get"
	Action string // verb: list, construct, activate, compile, generate, etc.
	Point  string // extension point the operation targeted
	Name   string // extension name, if any

	// Timing
	Start int64 // unix timestamp when Event() called
	End   int64 // unix timestamp when Write() called

	Success bool           // whether operation succeeded
	Error   string         // error message if failed
	Detail  map[string]any // additional operation-specific data
}

// Builder constructs a log entry using a fluent API.
// Create with [Event], chain methods to set fields, then call [Builder.Write]
// to write the entry.
type Builder struct {
	entry Entry
}

// Event creates a new log entry builder for an operation.
//
// The source identifies where the operation originated:
//   - CLI commands: "{plugin}:{command}" (e.g., "inspect:get", "core:config")
//   - MCP tools: "mcp:{tool}" (e.g., "mcp:spi_get")
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().Unix(),
		},
	}
}

// Point sets the extension point this operation affects.
func (b *Builder) Point(point string) *Builder {
	b.entry.Point = point
	return b
}

// Name sets the extension name this operation affects.
func (b *Builder) Name(name string) *Builder {
	b.entry.Name = name
	return b
}

// Detail adds a key-value pair to the log entry's detail map.
//
// Use for operation-specific data that doesn't fit standard fields:
// activation groups, result counts, output files, etc.
// Can be called multiple times to add multiple details.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write writes the log entry to the database, deriving success/failure from err.
//
// Example:
//
//	v, err := l.Get(point, name)
//	log.Event("inspect:get", "construct").Point(point).Name(name).Write(err)
//	if err != nil {
//		return err
//	}
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().Unix()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global logger. Safe to call multiple times.
// Errors are returned but callers may choose to ignore them (best-effort logging).
func Open() error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}

	p := dbPath()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	global = &Logger{db: db}
	return nil
}

// SetProject sets the project identifier for subsequent log entries.
// The dir should be the absolute path of the working directory.
func SetProject(dir string) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.project = hash(dir)
	}
}

// Run returns the identifier stamped on entries written by this process.
func Run() string { return run }

// Log writes an entry. Safe to call if logger not initialised (no-op).
func Log(e Entry) {
	mu.Lock()
	l := global
	mu.Unlock()

	if l == nil {
		return
	}
	l.log(e)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}
