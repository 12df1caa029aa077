package messenger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/Krakenied/MiniMessenger/internal/document"
	"github.com/Krakenied/MiniMessenger/internal/filesys"
	"github.com/Krakenied/MiniMessenger/internal/log"
	"github.com/Krakenied/MiniMessenger/internal/markup"
)

// maxParseRetries is how many times a malformed file is quarantined and
// replaced by the bundled default within one reload.
const maxParseRetries = 1

// Paths identifies the configuration a Store manages.
type Paths struct {
	// Resource is the name of the bundled default inside the resource FS.
	Resource string
	// File is the path of the backing file on disk.
	File string
	// Prefix is the document path of the prefix template.
	Prefix string
	// Messages is the document path of the messages sub-table.
	Messages string
}

func (p Paths) validate() error {
	switch {
	case p.Resource == "":
		return fmt.Errorf("%w: resource name cannot be empty", ErrInvalidArgument)
	case p.File == "":
		return fmt.Errorf("%w: file path cannot be empty", ErrInvalidArgument)
	case p.Prefix == "":
		return fmt.Errorf("%w: prefix path cannot be empty", ErrInvalidArgument)
	case p.Messages == "":
		return fmt.Errorf("%w: messages section path cannot be empty", ErrInvalidArgument)
	}
	return nil
}

// Store owns the backing file and the parsed document. Reads go through an
// atomically published snapshot and never block; reloads are serialized.
type Store struct {
	fs        filesys.FS
	resources fs.FS
	paths     Paths
	root      string
	materials MaterialValidator
	now       func() time.Time

	reloadMu sync.Mutex // serializes Reload; readers never take it
	snap     atomic.Pointer[snapshot]
	state    atomic.Int32
	lastErr  atomic.Error
	reloads  atomic.Int64
	gen      atomic.Uint64
}

// NewStore creates a Store and performs the first reload. It fails only when
// an identifier is empty; a failed first reload is logged and leaves the
// store in StateFailed, ready to be reloaded again.
func NewStore(resources fs.FS, paths Paths, opts ...Opt) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newStore(resources, paths, o)
}

func newStore(resources fs.FS, paths Paths, o options) (*Store, error) {
	if resources == nil {
		return nil, fmt.Errorf("%w: resources cannot be nil", ErrInvalidArgument)
	}
	if err := paths.validate(); err != nil {
		return nil, err
	}

	s := &Store{
		fs:        o.fs,
		resources: resources,
		paths:     paths,
		root:      o.root,
		materials: o.materials,
		now:       o.now,
	}
	if err := s.Reload(); err != nil {
		log.Warn("initial reload failed", "file", paths.File, "error", err)
	}
	return s, nil
}

// Paths returns the identifiers the store was created with.
func (s *Store) Paths() Paths { return s.paths }

// State returns the current load state.
func (s *Store) State() State { return State(s.state.Load()) }

// LastError returns the error of the last reload, nil after a success.
func (s *Store) LastError() error { return s.lastErr.Load() }

// Reloads returns the number of successful reloads.
func (s *Store) Reloads() int64 { return s.reloads.Load() }

// LoadedAt returns when the served snapshot was published, zero if never.
func (s *Store) LoadedAt() time.Time {
	if snap := s.snap.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

// Generation returns the sequence number of the served snapshot, 0 if none.
func (s *Store) Generation() uint64 {
	if snap := s.snap.Load(); snap != nil {
		return snap.generation
	}
	return 0
}

// Reload materializes the backing file from the bundled default if it is
// missing, parses it and publishes a new snapshot. A malformed file is
// renamed aside and replaced by the default once. On any failure the
// previously published snapshot stays in place.
func (s *Store) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.state.Store(int32(StateLoading))

	snap, err := s.load()
	if err != nil {
		s.lastErr.Store(err)
		s.state.Store(int32(StateFailed))
		return err
	}

	s.snap.Store(snap)
	s.reloads.Inc()
	s.lastErr.Store(nil)
	s.state.Store(int32(StateReady))
	log.Info("config reloaded", "file", s.paths.File, "generation", snap.generation)
	return nil
}

func (s *Store) load() (*snapshot, error) {
	for attempt := 0; ; attempt++ {
		if err := s.bootstrap(); err != nil {
			return nil, err
		}

		doc, err := s.parse()
		if err == nil {
			return s.derive(doc)
		}
		if !errors.Is(err, document.ErrParse) {
			return nil, err
		}
		if attempt >= maxParseRetries {
			log.Error("bundled default config does not parse", "file", s.paths.File, "resource", s.paths.Resource, "error", err)
			return nil, fmt.Errorf("%w: default %q is malformed: %w", ErrBootstrap, s.paths.Resource, err)
		}
		if err := s.quarantine(); err != nil {
			return nil, err
		}
	}
}

// bootstrap copies the bundled default to the backing file if it is absent.
func (s *Store) bootstrap() error {
	_, err := s.fs.Stat(s.paths.File)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Error("could not check config file", "file", s.paths.File, "error", err)
		return fmt.Errorf("%w: checking %s: %w", ErrIO, s.paths.File, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.paths.File), 0o755); err != nil {
		log.Error("could not create config directory", "file", s.paths.File, "error", err)
		return fmt.Errorf("%w: creating config directory: %w", ErrBootstrap, err)
	}

	data, err := s.readResource()
	if err != nil {
		log.Error("could not copy default config file", "file", s.paths.File, "resource", s.paths.Resource, "error", err)
		return fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	if err := filesys.AtomicWrite(s.fs, s.paths.File, data, 0o644); err != nil {
		log.Error("could not copy default config file", "file", s.paths.File, "resource", s.paths.Resource, "error", err)
		return fmt.Errorf("%w: writing %s: %w", ErrBootstrap, s.paths.File, err)
	}

	log.Info("copied default config file", "file", s.paths.File, "resource", s.paths.Resource)
	return nil
}

// readResource reads the bundled default. The stream is closed before
// returning on every path.
func (s *Store) readResource() (data []byte, err error) {
	f, err := s.resources.Open(s.paths.Resource)
	if err != nil {
		return nil, fmt.Errorf("opening resource %q: %w", s.paths.Resource, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("closing resource %q: %w", s.paths.Resource, cerr))
		}
	}()

	data, err = io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading resource %q: %w", s.paths.Resource, err)
	}
	return data, nil
}

func (s *Store) parse() (*document.Section, error) {
	data, err := s.fs.ReadFile(s.paths.File)
	if err != nil {
		log.Error("could not load config file", "file", s.paths.File, "error", err)
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, s.paths.File, err)
	}

	doc, err := document.Parse(s.paths.File, data)
	if err != nil {
		log.Error("could not load config file", "file", s.paths.File, "error", err)
		return nil, err
	}
	return doc, nil
}

// quarantine renames the backing file aside so the next bootstrap recreates
// it. The original name is a prefix of the new one.
func (s *Store) quarantine() error {
	dst := fmt.Sprintf("%s.%d", s.paths.File, s.now().UnixNano())
	if err := s.fs.Rename(s.paths.File, dst); err != nil {
		log.Error("could not quarantine malformed config file", "file", s.paths.File, "error", err)
		return fmt.Errorf("%w: quarantining %s: %w", ErrIO, s.paths.File, err)
	}
	log.Warn("quarantined malformed config file", "file", s.paths.File, "quarantine", dst)
	return nil
}

// derive resolves the prefix, the messages sub-table and the root into a new
// snapshot. Nothing is published here.
func (s *Store) derive(doc *document.Section) (*snapshot, error) {
	v, _ := doc.Get(s.paths.Prefix)
	prefix, ok := v.AsString()
	if !ok {
		err := &ValueError{Path: s.paths.Prefix, Expected: document.KindString.String(), Actual: v.Kind().String()}
		log.Error("could not load prefix", "file", s.paths.File, "path", s.paths.Prefix, "error", err)
		return nil, fmt.Errorf("%w: prefix: %w", ErrInvalidConfig, err)
	}

	messages, err := s.section(doc, s.paths.Messages, "messages section")
	if err != nil {
		return nil, err
	}

	root := doc
	if s.root != "" {
		if root, err = s.section(doc, s.root, "root section"); err != nil {
			return nil, err
		}
	}

	return &snapshot{
		doc:        doc,
		root:       root,
		prefix:     markup.Parse(prefix, nil),
		messages:   messages,
		loadedAt:   s.now(),
		generation: s.gen.Inc(),
	}, nil
}

func (s *Store) section(doc *document.Section, path, what string) (*document.Section, error) {
	v, _ := doc.Get(path)
	sec, ok := v.AsSection()
	if !ok {
		err := &ValueError{Path: path, Expected: document.KindSection.String(), Actual: v.Kind().String()}
		log.Error("could not load "+what, "file", s.paths.File, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, what, err)
	}
	return sec, nil
}

// GetPath joins the root path with key.
func (s *Store) GetPath(key string) string {
	if snap := s.snap.Load(); snap != nil {
		return snap.root.Join(key)
	}
	return document.JoinPath(s.root, key)
}

// GetBool returns the boolean at key.
func (s *Store) GetBool(key string) (bool, error) {
	v, err := s.lookup(key, "bool")
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, s.mistyped(key, "bool", v)
	}
	return b, nil
}

// GetInt returns the number at key converted to int, saturating at the int
// bounds.
func (s *Store) GetInt(key string) (int, error) {
	i, err := s.GetInt64(key)
	switch {
	case i > math.MaxInt:
		return math.MaxInt, err
	case i < math.MinInt:
		return math.MinInt, err
	}
	return int(i), err
}

// GetInt64 returns the number at key converted to int64. Fractions are
// truncated toward zero and out-of-range floats saturate.
func (s *Store) GetInt64(key string) (int64, error) {
	v, err := s.lookup(key, "number")
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInt64()
	if !ok {
		return 0, s.mistyped(key, "number", v)
	}
	return i, nil
}

// GetFloat32 returns the number at key converted to float32.
func (s *Store) GetFloat32(key string) (float32, error) {
	f, err := s.GetFloat64(key)
	return float32(f), err
}

// GetFloat64 returns the number at key converted to float64.
func (s *Store) GetFloat64(key string) (float64, error) {
	v, err := s.lookup(key, "number")
	if err != nil {
		return 0, err
	}
	f, ok := v.AsFloat64()
	if !ok {
		return 0, s.mistyped(key, "number", v)
	}
	return f, nil
}

// GetString returns the string at key. Numbers and booleans are not strings.
func (s *Store) GetString(key string) (string, error) {
	v, err := s.lookup(key, "string")
	if err != nil {
		return "", err
	}
	str, ok := v.AsString()
	if !ok {
		return "", s.mistyped(key, "string", v)
	}
	return str, nil
}

// GetStringList returns the list at key with scalar items rendered as
// strings. Nested lists and sections inside it are skipped.
func (s *Store) GetStringList(key string) ([]string, error) {
	v, err := s.lookup(key, "list")
	if err != nil {
		return nil, err
	}
	items, ok := v.Strings()
	if !ok {
		return nil, s.mistyped(key, "list", v)
	}
	return items, nil
}

func (s *Store) lookup(key, expected string) (document.Value, error) {
	snap := s.snap.Load()
	if snap == nil {
		log.Warn("config lookup before load", "path", s.GetPath(key))
		return document.Value{}, fmt.Errorf("%w: %s", ErrNotLoaded, s.GetPath(key))
	}
	v, ok := snap.root.Get(key)
	if !ok {
		return document.Value{}, s.mistyped(key, expected, v)
	}
	return v, nil
}

func (s *Store) mistyped(key, expected string, v document.Value) error {
	err := &ValueError{Path: s.GetPath(key), Expected: expected, Actual: v.Kind().String()}
	log.Warn("config lookup failed", "path", err.Path, "error", err)
	return err
}
