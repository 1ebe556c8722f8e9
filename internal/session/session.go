package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/taxisim-cli/internal/editor"
	"github.com/KaramelBytes/taxisim-cli/internal/ingest"
	"github.com/KaramelBytes/taxisim-cli/internal/table"
	"github.com/KaramelBytes/taxisim-cli/internal/utils"
)

const (
	sessionFileName = "session.json"
	areaColumn      = "area"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrExists      = errors.New("session already exists")
	ErrInvalidName = errors.New("invalid session name")
)

// Session owns one editable table persisted on disk.
type Session struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Table        *table.Table `json:"table"`
	AreaOptions  []string     `json:"area_options,omitempty"`
	RegisteredAt *time.Time   `json:"registered_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// Not serialized: on-disk location of the session.json
	rootDir string
}

// New constructs an in-memory session seeded with the default table. Call Save() to persist.
// The area option set is fixed for the life of the session.
func New(name, rootDir string, areaOptions []string) *Session {
	if len(areaOptions) == 0 {
		areaOptions = table.AreaOptions
	}
	now := time.Now()
	return &Session{
		ID:          uuid.NewString(),
		Name:        name,
		Table:       table.Default(areaOptions),
		AreaOptions: slices.Clone(areaOptions),
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
	}
}

// Load reads session.json from dir.
func Load(dir string) (*Session, error) {
	path := filepath.Join(dir, sessionFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if s.Table == nil {
		s.Table = table.New()
	}
	if len(s.AreaOptions) == 0 {
		// older files kept the option set only on the table
		if col, ok := s.Table.Column(areaColumn); ok && len(col.Options) > 0 {
			s.AreaOptions = slices.Clone(col.Options)
		} else {
			s.AreaOptions = slices.Clone(table.AreaOptions)
		}
	}
	s.rootDir = dir
	return &s, nil
}

// RootDir returns the on-disk session directory path.
func (s *Session) RootDir() string { return s.rootDir }

// Save writes session.json using atomic write.
func (s *Session) Save() error {
	if s.rootDir == "" {
		return errors.New("session root directory not set")
	}
	s.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(s.rootDir, sessionFileName), data)
}

// replace swaps in a new table; any change invalidates a prior registration.
func (s *Session) replace(t *table.Table) {
	s.Table = t
	s.RegisteredAt = nil
	s.UpdatedAt = time.Now()
}

// AddRow appends a blank row.
func (s *Session) AddRow() {
	s.replace(editor.AddBlankRow(s.Table))
}

// SetCell edits one cell; on error the table is unchanged.
func (s *Session) SetCell(step int, column, raw string) error {
	t, err := editor.SetCell(s.Table, step, column, raw)
	if err != nil {
		return err
	}
	s.replace(t)
	return nil
}

// DeleteRow removes the row at step.
func (s *Session) DeleteRow(step int) error {
	t, err := editor.DeleteRow(s.Table, step)
	if err != nil {
		return err
	}
	s.replace(t)
	return nil
}

// Replace applies a wholesale edit of the table.
func (s *Session) Replace(edited *table.Table) {
	s.replace(s.stampOptions(editor.ApplyEdits(s.Table, edited)))
}

// Import ingests path and replaces the table with its renumbered contents.
// The upload's own area values do not widen the session's option set; out-of-set
// values are reported by Register. A parse failure leaves the session untouched.
func (s *Session) Import(path string, opt ingest.Options) error {
	t, err := ingest.IngestFile(path, opt)
	if err != nil {
		return err
	}
	s.replace(s.stampOptions(table.Renumber(t)))
	return nil
}

// stampOptions puts the session's area option set on t's area column.
// Numeric area columns are left alone.
func (s *Session) stampOptions(t *table.Table) *table.Table {
	j := t.Index(areaColumn)
	if j < 0 || len(s.AreaOptions) == 0 {
		return t
	}
	switch t.Columns[j].Kind {
	case table.KindCategory, table.KindText:
		t.Columns[j].Kind = table.KindCategory
		t.Columns[j].Options = slices.Clone(s.AreaOptions)
	}
	return t
}

// Register validates category options and stamps the registration time.
func (s *Session) Register(now time.Time) error {
	if err := editor.ValidateOptions(s.Table); err != nil {
		return err
	}
	s.RegisteredAt = &now
	return nil
}

// Store maps session names to directories under a root.
type Store struct {
	Root string
}

func (st Store) dir(name string) (string, error) {
	if !utils.ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(st.Root, name), nil
}

// Create makes and saves a new default session.
func (st Store) Create(name string, areaOptions []string) (*Session, error) {
	dir, err := st.dir(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, sessionFileName)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}
	s := New(name, dir, areaOptions)
	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open loads the named session.
func (st Store) Open(name string) (*Session, error) {
	dir, err := st.dir(name)
	if err != nil {
		return nil, err
	}
	return Load(dir)
}

// List returns the sessions under Root sorted by name. Unreadable entries are skipped.
func (st Store) List() ([]*Session, error) {
	entries, err := os.ReadDir(st.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}
	var out []*Session
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, err := Load(filepath.Join(st.Root, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the named session directory.
func (st Store) Delete(name string) error {
	dir, err := st.dir(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, sessionFileName)); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return os.RemoveAll(dir)
}
