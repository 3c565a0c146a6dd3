package enginetest

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/types"
)

func TestEngine_CallbackFromOtherGoroutine(t *testing.T) {
	e := New()
	e.Packages["a.msi"] = &Package{Sequence: []string{"ICE01"}}
	e.Actions["ICE01"] = &Action{Messages: []Message{
		{Type: engine.MessageUser, Record: types.NewRecord("hello")},
		{Type: engine.MessageInfo, Record: types.NewRecord("masked")},
	}}

	var got atomic.Int32
	e.SetCallback(func(kind engine.MessageType, rec *types.Record) engine.Result {
		if kind == engine.MessageUser && rec.Template() == "hello" {
			got.Add(1)
		}
		return engine.ResultOK
	}, engine.MaskUser)

	db, err := e.OpenDatabase("/tmp/work/a.msi", engine.OpenDirect)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	s, err := e.OpenSession(db)
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if err := s.DoAction("ICE01"); err != nil {
		t.Fatalf("DoAction() error = %v", err)
	}
	if got.Load() != 1 {
		t.Errorf("callback invoked %d times, want 1", got.Load())
	}
	if !reflect.DeepEqual(e.Ran(), []string{"ICE01"}) {
		t.Errorf("Ran() = %v", e.Ran())
	}
}

func TestEngine_UIStateSwap(t *testing.T) {
	e := New()
	prev, prevMask := e.SetCallback(func(engine.MessageType, *types.Record) engine.Result { return engine.ResultOK }, engine.MaskError)
	if prev != nil || prevMask != engine.MaskNone {
		t.Errorf("initial callback = (%v, %v), want none", prev != nil, prevMask)
	}
	if got := e.SetUILevel(engine.UISilent); got != engine.UIDefault {
		t.Errorf("SetUILevel() prev = %v, want UIDefault", got)
	}
	if got := e.SetUILevel(engine.UINoChange); got != engine.UISilent {
		t.Errorf("SetUILevel(NoChange) prev = %v, want UISilent", got)
	}
	if st := e.State(); st.Level != engine.UISilent || st.Mask != engine.MaskError {
		t.Errorf("State() = %+v", st)
	}
}

func TestDatabase_Statements(t *testing.T) {
	e := New()
	e.Packages["p.msi"] = &Package{Properties: map[string]string{"ProductCode": "{A}"}}
	e.Rulesets["cube"] = &Ruleset{Actions: []string{"ICE01", "ICE02"}, BlankProperties: true, Conflict: true}

	dbi, err := e.OpenDatabase("p.msi", engine.OpenDirect)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	db := dbi.(*Database)

	vals, err := db.QueryStrings("SELECT `Value` FROM `Property` WHERE `Property` = ?", "ProductCode")
	if err != nil || !reflect.DeepEqual(vals, []string{"{A}"}) {
		t.Fatalf("property query = %v, %v", vals, err)
	}

	if err := db.Merge("cube"); !errors.Is(err, engine.ErrMergeConflict) {
		t.Fatalf("Merge() error = %v, want ErrMergeConflict", err)
	}
	if _, ok := db.Property("ProductCode"); ok {
		t.Error("ProductCode should be blanked by merge")
	}

	actions, err := db.QueryStrings("SELECT `Action` FROM `_ICESequence` ORDER BY `Sequence`")
	if err != nil || !reflect.DeepEqual(actions, []string{"ICE01", "ICE02"}) {
		t.Fatalf("sequence query = %v, %v", actions, err)
	}

	if err := db.Execute("INSERT INTO `Property` (`Property`, `Value`) VALUES (?, ?)", "ProductCode", "{A}"); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	if err := db.Execute("INSERT INTO `Property` (`Property`, `Value`) VALUES (?, ?)", "ProductCode", "{B}"); err == nil {
		t.Error("duplicate insert should fail")
	}
	if err := db.Execute("DROP TABLE `Property`"); err != nil {
		t.Fatalf("drop error = %v", err)
	}
	if db.HasTable("Property") {
		t.Error("Property should be dropped")
	}
	if _, err := db.QueryStrings("SELECT * FROM `File`"); err == nil {
		t.Error("unsupported query should fail")
	}
}

func TestEngine_MissingPackage(t *testing.T) {
	e := New()
	_, err := e.OpenDatabase("missing.msi", engine.OpenDirect)
	var engErr *engine.Error
	if !errors.As(err, &engErr) || engErr.Code != CodeOpenFailed {
		t.Errorf("OpenDatabase() error = %v, want engine error %d", err, CodeOpenFailed)
	}
}
