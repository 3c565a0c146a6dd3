//go:build windows

package msi

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/types"
)

var (
	trampolineOnce sync.Once
	trampoline     uintptr

	// active is the engine receiving native UI messages. The installer UI
	// handler is process-wide, so only one Engine can be installed at a time.
	activeMu sync.RWMutex
	active   *Engine
)

// uiHandler is the INSTALLUI_HANDLER_RECORD registered with the installer.
// It runs on the installer's thread.
func uiHandler(_ uintptr, messageType uint32, hRecord uintptr) uintptr {
	activeMu.RLock()
	e := active
	activeMu.RUnlock()
	if e == nil {
		return 0
	}

	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()
	if cb == nil {
		return 0
	}

	kind := engine.MessageType(messageType & 0xFF000000)
	var rec *types.Record
	if hRecord != 0 {
		rec = readRecord(handle(hRecord))
	}
	return uintptr(cb(kind, rec))
}

// Engine is the Windows Installer engine.
type Engine struct {
	mu   sync.Mutex
	cb   engine.Callback
	mask engine.EventMask

	// native is the handler that was installed before the first SetCallback.
	native    uintptr
	installed bool
}

// New loads msi.dll and returns the engine.
func New() (engine.Engine, error) {
	if err := modmsi.Load(); err != nil {
		return nil, errors.Join(engine.ErrUnsupported, err)
	}
	trampolineOnce.Do(func() {
		trampoline = windows.NewCallback(uiHandler)
	})
	return &Engine{}, nil
}

// SetCallback implements engine.Engine. A nil cb restores the handler that
// was installed before this engine's first SetCallback.
func (e *Engine) SetCallback(cb engine.Callback, mask engine.EventMask) (engine.Callback, engine.EventMask) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, prevMask := e.cb, e.mask
	if cb == nil {
		if e.installed {
			_, _, _ = procMsiSetExternalUIRecord.Call(e.native, 0, 0, 0)
			e.installed = false
		}
		activeMu.Lock()
		if active == e {
			active = nil
		}
		activeMu.Unlock()
		e.cb, e.mask = nil, engine.MaskNone
		return prev, prevMask
	}

	var native uintptr
	_, _, _ = procMsiSetExternalUIRecord.Call(trampoline, uintptr(nativeFilter(mask)), 0, uintptr(unsafe.Pointer(&native)))
	if !e.installed {
		e.native = native
		e.installed = true
	}
	activeMu.Lock()
	active = e
	activeMu.Unlock()
	e.cb, e.mask = cb, mask
	return prev, prevMask
}

// nativeFilter converts an event mask to INSTALLLOGMODE flags. The bit
// layout is the same.
func nativeFilter(mask engine.EventMask) uint32 {
	return uint32(mask)
}

// SetUILevel implements engine.Engine.
func (e *Engine) SetUILevel(level engine.UILevel) engine.UILevel {
	prev, _, _ := procMsiSetInternalUI.Call(uintptr(level), 0)
	return engine.UILevel(prev)
}

// OpenDatabase implements engine.Engine.
func (e *Engine) OpenDatabase(path string, mode engine.OpenMode) (engine.Database, error) {
	p, err := utf16(path)
	if err != nil {
		return nil, err
	}
	var h handle
	rc, _, _ := procMsiOpenDatabaseW.Call(p, uintptr(mode), uintptr(unsafe.Pointer(&h)))
	if err := check("MsiOpenDatabase", rc); err != nil {
		return nil, err
	}
	return &Database{h: h, path: path}, nil
}

// OpenSession implements engine.Engine. The session ignores machine state
// so validation never depends on what is installed.
func (e *Engine) OpenSession(db engine.Database) (engine.Session, error) {
	d, ok := db.(*Database)
	if !ok {
		return nil, errors.New("msi: database not opened by this engine")
	}
	p, err := utf16("#" + strconv.FormatUint(uint64(d.h), 10))
	if err != nil {
		return nil, err
	}
	var h handle
	rc, _, _ := procMsiOpenPackageExW.Call(p, openPackageFlags, uintptr(unsafe.Pointer(&h)))
	if err := check("MsiOpenPackageEx", rc); err != nil {
		return nil, err
	}
	return &Session{h: h}, nil
}

// DefaultRuleset looks for darice.cub where Orca, MsiVal2, and the Windows
// SDK install it.
func (e *Engine) DefaultRuleset() (string, bool) {
	for _, dir := range rulesetDirs() {
		candidate := filepath.Join(dir, defaultRulesetName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func rulesetDirs() []string {
	var dirs []string
	for _, env := range []string{"ProgramFiles(x86)", "ProgramFiles"} {
		if root := os.Getenv(env); root != "" {
			dirs = append(dirs, filepath.Join(root, "Orca"), filepath.Join(root, "MsiVal2"))
		}
	}

	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows Kits\Installed Roots`, registry.QUERY_VALUE|registry.WOW64_32KEY)
	if err != nil {
		return dirs
	}
	defer func() { _ = k.Close() }()
	if root, _, err := k.GetStringValue("KitsRoot10"); err == nil {
		matches, _ := filepath.Glob(filepath.Join(root, "bin", "*", "x86"))
		for i := len(matches) - 1; i >= 0; i-- {
			dirs = append(dirs, matches[i])
		}
		dirs = append(dirs, filepath.Join(root, "bin", "x86"))
	}
	return dirs
}

// FormatMessage implements engine.Engine.
func (e *Engine) FormatMessage(rec *types.Record) string {
	if rec == nil {
		return ""
	}
	h, err := writeRecord(rec)
	if err != nil {
		return ""
	}
	defer closeHandle(h)

	var n uint32
	empty := [1]uint16{}
	rc, _, _ := procMsiFormatRecordW.Call(0, uintptr(h), uintptr(unsafe.Pointer(&empty[0])), uintptr(unsafe.Pointer(&n)))
	if (rc != errMoreData && rc != errSuccess) || n == 0 {
		return ""
	}
	n++
	buf := make([]uint16, n)
	rc, _, _ = procMsiFormatRecordW.Call(0, uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&n)))
	if rc != errSuccess {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

var _ engine.Engine = (*Engine)(nil)

// Database is an open installer database handle.
type Database struct {
	h    handle
	path string
}

// Path implements engine.Database.
func (d *Database) Path() string { return d.path }

// ApplyTransform implements engine.Database.
func (d *Database) ApplyTransform(path string) error {
	p, err := utf16(path)
	if err != nil {
		return err
	}
	rc, _, _ := procMsiDatabaseApplyTransformW.Call(uintptr(d.h), p, 0)
	return check("MsiDatabaseApplyTransform", rc)
}

// IsTablePersistent implements engine.Database.
func (d *Database) IsTablePersistent(table string) bool {
	p, err := utf16(table)
	if err != nil {
		return false
	}
	rc, _, _ := procMsiDatabaseIsTablePersistentW.Call(uintptr(d.h), p)
	return rc == conditionTrue
}

func (d *Database) openView(query string, params []string) (handle, error) {
	q, err := utf16(query)
	if err != nil {
		return 0, err
	}
	var view handle
	rc, _, _ := procMsiDatabaseOpenViewW.Call(uintptr(d.h), q, uintptr(unsafe.Pointer(&view)))
	if err := check("MsiDatabaseOpenView", rc); err != nil {
		return 0, err
	}

	rec, err := stringParams(params)
	if err != nil {
		closeHandle(view)
		return 0, err
	}
	defer closeHandle(rec)
	rc, _, _ = procMsiViewExecute.Call(uintptr(view), uintptr(rec))
	if err := check("MsiViewExecute", rc); err != nil {
		closeHandle(view)
		return 0, err
	}
	return view, nil
}

// QueryStrings implements engine.Database.
func (d *Database) QueryStrings(query string, params ...string) ([]string, error) {
	view, err := d.openView(query, params)
	if err != nil {
		return nil, err
	}
	defer closeHandle(view)

	var out []string
	for {
		var rec handle
		rc, _, _ := procMsiViewFetch.Call(uintptr(view), uintptr(unsafe.Pointer(&rec)))
		if rc == errNoMoreItems {
			return out, nil
		}
		if err := check("MsiViewFetch", rc); err != nil {
			return nil, err
		}
		out = append(out, recordString(rec, 1))
		closeHandle(rec)
	}
}

// Execute implements engine.Database.
func (d *Database) Execute(statement string, params ...string) error {
	view, err := d.openView(statement, params)
	if err != nil {
		return err
	}
	closeHandle(view)
	return nil
}

// Merge implements engine.Database.
func (d *Database) Merge(rulesetPath string) error {
	p, err := utf16(rulesetPath)
	if err != nil {
		return err
	}
	var ruleset handle
	rc, _, _ := procMsiOpenDatabaseW.Call(p, uintptr(engine.OpenReadOnly), uintptr(unsafe.Pointer(&ruleset)))
	if err := check("MsiOpenDatabase", rc); err != nil {
		return err
	}
	defer closeHandle(ruleset)

	rc, _, _ = procMsiDatabaseMergeW.Call(uintptr(d.h), uintptr(ruleset), 0)
	if rc == errFunctionFail {
		return errors.Join(engine.ErrMergeConflict, &engine.Error{Op: "MsiDatabaseMerge", Code: int(rc), Record: lastErrorRecord()})
	}
	return check("MsiDatabaseMerge", rc)
}

// Commit implements engine.Database.
func (d *Database) Commit() error {
	rc, _, _ := procMsiDatabaseCommit.Call(uintptr(d.h))
	return check("MsiDatabaseCommit", rc)
}

// Close implements engine.Database.
func (d *Database) Close() error {
	closeHandle(d.h)
	d.h = 0
	return nil
}

var _ engine.Database = (*Database)(nil)

// Session is an installer session handle.
type Session struct {
	h handle
}

// DoAction implements engine.Session.
func (s *Session) DoAction(name string) error {
	p, err := utf16(name)
	if err != nil {
		return err
	}
	rc, _, _ := procMsiDoActionW.Call(uintptr(s.h), p)
	return check("MsiDoAction", rc)
}

// Close implements engine.Session.
func (s *Session) Close() error {
	closeHandle(s.h)
	s.h = 0
	return nil
}

var _ engine.Session = (*Session)(nil)
