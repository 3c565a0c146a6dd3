// Package enginetest provides a scriptable in-memory installer engine.
//
// Databases are scripted per file base name so a package copied into a work
// directory opens with its scripted contents. Diagnostics scripted for an
// action are delivered to the installed callback from a separate goroutine
// while DoAction is blocked, mirroring the engine's callback thread.
package enginetest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/types"
)

// Native error codes reported by the fake.
const (
	CodeOpenFailed     = 110
	CodeBadQuery       = 1615
	CodeFunctionFailed = 1627
)

// Package is the scripted content of a database file.
type Package struct {
	// Tables lists persistent tables other than Property and _ICESequence.
	Tables []string
	// Properties, when non-nil, makes the Property table persistent with
	// these rows.
	Properties map[string]string
	// Sequence, when non-nil, makes _ICESequence persistent with these
	// actions in sequence order.
	Sequence []string
	// OpenErr fails OpenDatabase.
	OpenErr error
}

// Ruleset is the scripted effect of merging a ruleset database.
type Ruleset struct {
	// Actions are appended to _ICESequence.
	Actions []string
	// BlankProperties empties the Property table, creating it if absent.
	BlankProperties bool
	// Properties are merged into the Property table, creating it if absent.
	Properties map[string]string
	// Conflict reports a merge conflict after applying the merge.
	Conflict bool
	// Err fails the merge without applying it.
	Err error
}

// Transform is the scripted effect of applying a transform.
type Transform struct {
	// Properties are set in the Property table, creating it if absent.
	Properties map[string]string
	// Err fails the transform.
	Err error
}

// Message is a diagnostic emitted during an action.
type Message struct {
	Type   engine.MessageType
	Record *types.Record
}

// Action is the scripted behavior of a validation action.
type Action struct {
	// Messages are delivered to the callback before DoAction returns.
	Messages []Message
	// Run, when set, is invoked with the session database after messages
	// are delivered.
	Run func(db *Database)
	// Err is returned from DoAction.
	Err error
}

// UIState is the engine-wide handler state.
type UIState struct {
	Callback engine.Callback
	Mask     engine.EventMask
	Level    engine.UILevel
}

// Engine is a scriptable engine.Engine.
type Engine struct {
	mu sync.Mutex

	// Packages maps database base names to their content.
	Packages map[string]*Package
	// Rulesets maps ruleset paths to their merge effect.
	Rulesets map[string]*Ruleset
	// Transforms maps transform paths to their effect.
	Transforms map[string]*Transform
	// Actions maps action names to scripted behavior. Unscripted actions
	// succeed silently.
	Actions map[string]*Action
	// Default is the default ruleset path; empty means none is installed.
	Default string
	// SessionErr fails OpenSession.
	SessionErr error

	cb       engine.Callback
	mask     engine.EventMask
	level    engine.UILevel
	opened   map[string]*Database
	ran      []string
	sessions int
	installs int
}

// New returns an engine with no scripted content and default UI state.
func New() *Engine {
	return &Engine{
		Packages:   make(map[string]*Package),
		Rulesets:   make(map[string]*Ruleset),
		Transforms: make(map[string]*Transform),
		Actions:    make(map[string]*Action),
		level:      engine.UIDefault,
		opened:     make(map[string]*Database),
	}
}

// SetCallback implements engine.Engine.
func (e *Engine) SetCallback(cb engine.Callback, mask engine.EventMask) (engine.Callback, engine.EventMask) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, prevMask := e.cb, e.mask
	e.cb, e.mask = cb, mask
	e.installs++
	return prev, prevMask
}

// SetUILevel implements engine.Engine.
func (e *Engine) SetUILevel(level engine.UILevel) engine.UILevel {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.level
	if level != engine.UINoChange {
		e.level = level
	}
	return prev
}

// State returns the current handler state.
func (e *Engine) State() UIState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return UIState{Callback: e.cb, Mask: e.mask, Level: e.level}
}

// Installs returns how many times SetCallback was called.
func (e *Engine) Installs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.installs
}

// Emit delivers a message to the installed callback as the engine would,
// honoring the event mask. Returns ResultNone when no callback receives it.
func (e *Engine) Emit(kind engine.MessageType, rec *types.Record) engine.Result {
	e.mu.Lock()
	cb, mask := e.cb, e.mask
	e.mu.Unlock()
	if cb == nil || !mask.Has(kind) {
		return engine.ResultNone
	}
	return cb(kind, rec)
}

// OpenDatabase implements engine.Engine.
func (e *Engine) OpenDatabase(path string, _ engine.OpenMode) (engine.Database, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pkg, ok := e.Packages[filepath.Base(path)]
	if !ok {
		return nil, &engine.Error{Op: "OpenDatabase", Code: CodeOpenFailed, Err: fmt.Errorf("no such package %q", path)}
	}
	if pkg.OpenErr != nil {
		return nil, &engine.Error{Op: "OpenDatabase", Code: CodeOpenFailed, Err: pkg.OpenErr}
	}

	db := newDatabase(e, path, pkg)
	e.opened[path] = db
	return db, nil
}

// OpenSession implements engine.Engine.
func (e *Engine) OpenSession(db engine.Database) (engine.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.SessionErr != nil {
		return nil, &engine.Error{Op: "OpenSession", Code: CodeFunctionFailed, Err: e.SessionErr}
	}
	fdb, ok := db.(*Database)
	if !ok {
		return nil, fmt.Errorf("enginetest: foreign database %T", db)
	}
	e.sessions++
	return &Session{eng: e, db: fdb}, nil
}

// DefaultRuleset implements engine.Engine.
func (e *Engine) DefaultRuleset() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Default, e.Default != ""
}

// FormatMessage implements engine.Engine.
func (e *Engine) FormatMessage(rec *types.Record) string {
	return rec.Format()
}

// Opened returns the database most recently opened at path.
func (e *Engine) Opened(path string) *Database {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opened[path]
}

// Ran returns the actions executed, in order, across all sessions.
func (e *Engine) Ran() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ran...)
}

// Sessions returns the number of sessions opened.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions
}

// Database is an in-memory engine.Database.
type Database struct {
	mu sync.Mutex

	eng      *Engine
	path     string
	tables   map[string]bool
	props    map[string]string
	sequence []string

	transforms []string
	merged     []string
	commits    int
	closed     bool
}

func newDatabase(e *Engine, path string, pkg *Package) *Database {
	db := &Database{eng: e, path: path, tables: make(map[string]bool)}
	for _, t := range pkg.Tables {
		db.tables[t] = true
	}
	if pkg.Properties != nil {
		db.tables["Property"] = true
		db.props = make(map[string]string, len(pkg.Properties))
		for k, v := range pkg.Properties {
			db.props[k] = v
		}
	}
	if pkg.Sequence != nil {
		db.tables["_ICESequence"] = true
		db.sequence = append([]string(nil), pkg.Sequence...)
	}
	return db
}

// Path implements engine.Database.
func (d *Database) Path() string { return d.path }

// ApplyTransform implements engine.Database.
func (d *Database) ApplyTransform(path string) error {
	d.eng.mu.Lock()
	tr, ok := d.eng.Transforms[path]
	d.eng.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if !ok {
		return &engine.Error{Op: "ApplyTransform", Code: CodeOpenFailed, Err: fmt.Errorf("no such transform %q", path)}
	}
	if tr.Err != nil {
		return &engine.Error{Op: "ApplyTransform", Code: CodeFunctionFailed, Err: tr.Err}
	}
	if tr.Properties != nil {
		d.ensureProperty()
		for k, v := range tr.Properties {
			d.props[k] = v
		}
	}
	d.transforms = append(d.transforms, path)
	return nil
}

// IsTablePersistent implements engine.Database.
func (d *Database) IsTablePersistent(table string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tables[table]
}

var (
	reSelectSequence = regexp.MustCompile("^SELECT `Action` FROM `_ICESequence` ORDER BY `Sequence`$")
	reSelectProperty = regexp.MustCompile("^SELECT `Value` FROM `Property` WHERE `Property` = \\?$")
	reDropTable      = regexp.MustCompile("^DROP TABLE `([^`]+)`$")
	reDeleteProperty = regexp.MustCompile("^DELETE FROM `Property` WHERE `Property` = \\?$")
	reInsertProperty = regexp.MustCompile("^INSERT INTO `Property` \\(`Property`, `Value`\\) VALUES \\(\\?, \\?\\)$")
)

func badQuery(op, q string) error {
	return &engine.Error{Op: op, Code: CodeBadQuery, Err: fmt.Errorf("unsupported query %q", q)}
}

// QueryStrings implements engine.Database. Only the statements the
// validation runtime issues are understood.
func (d *Database) QueryStrings(query string, params ...string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := strings.TrimSpace(query)
	switch {
	case reSelectSequence.MatchString(q):
		if !d.tables["_ICESequence"] {
			return nil, badQuery("QueryStrings", q)
		}
		return append([]string(nil), d.sequence...), nil
	case reSelectProperty.MatchString(q) && len(params) == 1:
		if !d.tables["Property"] {
			return nil, badQuery("QueryStrings", q)
		}
		v, ok := d.props[params[0]]
		if !ok {
			return nil, nil
		}
		return []string{v}, nil
	default:
		return nil, badQuery("QueryStrings", q)
	}
}

// Execute implements engine.Database.
func (d *Database) Execute(statement string, params ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := strings.TrimSpace(statement)
	if m := reDropTable.FindStringSubmatch(s); m != nil {
		if !d.tables[m[1]] {
			return badQuery("Execute", s)
		}
		delete(d.tables, m[1])
		switch m[1] {
		case "Property":
			d.props = nil
		case "_ICESequence":
			d.sequence = nil
		}
		return nil
	}
	switch {
	case reDeleteProperty.MatchString(s) && len(params) == 1:
		if !d.tables["Property"] {
			return badQuery("Execute", s)
		}
		delete(d.props, params[0])
		return nil
	case reInsertProperty.MatchString(s) && len(params) == 2:
		if !d.tables["Property"] {
			return badQuery("Execute", s)
		}
		if _, exists := d.props[params[0]]; exists {
			return &engine.Error{Op: "Execute", Code: CodeFunctionFailed, Err: fmt.Errorf("duplicate key %q", params[0])}
		}
		d.props[params[0]] = params[1]
		return nil
	default:
		return badQuery("Execute", s)
	}
}

// Merge implements engine.Database.
func (d *Database) Merge(rulesetPath string) error {
	d.eng.mu.Lock()
	rs, ok := d.eng.Rulesets[rulesetPath]
	d.eng.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if !ok || rs == nil {
		return &engine.Error{Op: "Merge", Code: CodeOpenFailed, Err: fmt.Errorf("no such ruleset %q", rulesetPath)}
	}
	if rs.Err != nil {
		return &engine.Error{Op: "Merge", Code: CodeFunctionFailed, Err: rs.Err}
	}

	if len(rs.Actions) > 0 {
		d.tables["_ICESequence"] = true
		d.sequence = append(d.sequence, rs.Actions...)
	}
	if rs.BlankProperties {
		d.ensureProperty()
		d.props = make(map[string]string)
	}
	if rs.Properties != nil {
		d.ensureProperty()
		for k, v := range rs.Properties {
			d.props[k] = v
		}
	}
	d.merged = append(d.merged, rulesetPath)

	if rs.Conflict {
		return fmt.Errorf("merge %s: %w", rulesetPath, engine.ErrMergeConflict)
	}
	return nil
}

func (d *Database) ensureProperty() {
	d.tables["Property"] = true
	if d.props == nil {
		d.props = make(map[string]string)
	}
}

// Commit implements engine.Database.
func (d *Database) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commits++
	return nil
}

// Close implements engine.Database.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Property returns a Property table value and whether the row exists.
func (d *Database) Property(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.props[name]
	return v, ok
}

// HasTable reports whether table is persistent.
func (d *Database) HasTable(table string) bool {
	return d.IsTablePersistent(table)
}

// Tables returns the persistent table names, sorted.
func (d *Database) Tables() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.tables))
	for t := range d.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Merged returns the ruleset paths merged, in order.
func (d *Database) Merged() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.merged...)
}

// Transforms returns the transform paths applied, in order.
func (d *Database) Transforms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.transforms...)
}

// Commits returns how many times Commit was called.
func (d *Database) Commits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits
}

// Closed reports whether Close was called.
func (d *Database) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Session is an in-memory engine.Session.
type Session struct {
	eng    *Engine
	db     *Database
	mu     sync.Mutex
	closed bool
}

// DoAction implements engine.Session. Scripted messages are delivered from
// a separate goroutine; DoAction returns after the last callback returns.
func (s *Session) DoAction(name string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return &engine.Error{Op: "DoAction", Code: CodeFunctionFailed, Err: fmt.Errorf("session closed")}
	}

	s.eng.mu.Lock()
	act := s.eng.Actions[name]
	s.eng.ran = append(s.eng.ran, name)
	s.eng.mu.Unlock()

	if act == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, m := range act.Messages {
			s.eng.Emit(m.Type, m.Record)
		}
	}()
	<-done

	if act.Run != nil {
		act.Run(s.db)
	}
	return act.Err
}

// Close implements engine.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var (
	_ engine.Engine   = (*Engine)(nil)
	_ engine.Database = (*Database)(nil)
	_ engine.Session  = (*Session)(nil)
)
