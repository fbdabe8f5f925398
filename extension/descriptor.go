// descriptor.go reads descriptor resources: one file per extension point,
// named after the point, under one or more roots.
//
// Each non-blank line outside a '#' comment is either
//
//	github.com/acme/app/output.JSONPrinter
//	json=github.com/acme/app/output.JSONPrinter
//	json,js=github.com/acme/app/output.JSONPrinter
//
// Malformed lines are reported individually so that one broken entry does
// not hide the others.

package extension

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// DefaultDirs are the directories scanned under a root, in order.
var DefaultDirs = []string{"extensions/internal", "extensions", "services"}

// Source is one directory of descriptor resources inside a file system.
type Source struct {
	FS  fs.FS
	Dir string
}

func (s Source) String() string {
	return fmt.Sprintf("%v:%s", s.FS, s.Dir)
}

// Sources returns one Source per DefaultDirs entry under fsys.
func Sources(fsys fs.FS) []Source {
	out := make([]Source, 0, len(DefaultDirs))
	for _, dir := range DefaultDirs {
		out = append(out, Source{FS: fsys, Dir: dir})
	}
	return out
}

// DirSources returns Sources rooted at a directory on disk.
func DirSources(root string) []Source {
	return Sources(os.DirFS(root))
}

// read returns the descriptor resource for point, or nil if s has none.
func (s Source) read(point string) ([]byte, error) {
	data, err := fs.ReadFile(s.FS, path.Join(s.Dir, point))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// entry is one well-formed descriptor line.
type entry struct {
	Line  int
	Names []string
	Type  string
}

// lineError is a malformed descriptor line.
type lineError struct {
	Line  int
	Text  string
	Names []string
	Err   error
}

func (e lineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e lineError) Unwrap() error { return e.Err }

// parseDescriptor splits a descriptor resource into entries, collecting
// malformed lines separately.
func parseDescriptor(data []byte) ([]entry, []lineError) {
	var (
		entries []entry
		bad     []lineError
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		n++
		raw := sc.Text()
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		e := entry{Line: n, Type: line}
		if i := strings.IndexByte(line, '='); i >= 0 {
			e.Type = strings.TrimSpace(line[i+1:])
			for _, name := range strings.Split(line[:i], ",") {
				if name = strings.TrimSpace(name); name != "" {
					e.Names = append(e.Names, name)
				}
			}
		}

		switch {
		case e.Type == "":
			bad = append(bad, lineError{Line: n, Text: raw, Names: e.Names, Err: fmt.Errorf("%w: missing implementation type", ErrMalformed)})
		case strings.ContainsAny(e.Type, " \t="):
			bad = append(bad, lineError{Line: n, Text: raw, Names: e.Names, Err: fmt.Errorf("%w: invalid implementation type %q", ErrMalformed, e.Type)})
		case namesInvalid(e.Names):
			bad = append(bad, lineError{Line: n, Text: raw, Err: fmt.Errorf("%w: invalid extension name", ErrMalformed)})
		default:
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		bad = append(bad, lineError{Line: n + 1, Err: err})
	}
	return entries, bad
}

func namesInvalid(names []string) bool {
	for _, n := range names {
		if strings.ContainsAny(n, " \t") || strings.HasPrefix(n, "-") || n == DefaultName {
			return true
		}
	}
	return false
}
