package runtime

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/iox"
	"github.com/justapithecus/msival/log"
)

// Queries run against the working copy.
const (
	queryProductCode   = "SELECT `Value` FROM `Property` WHERE `Property` = ?"
	queryICESequence   = "SELECT `Action` FROM `_ICESequence` ORDER BY `Sequence`"
	stmtDropProperty   = "DROP TABLE `Property`"
	stmtDeleteProperty = "DELETE FROM `Property` WHERE `Property` = ?"
	stmtInsertProperty = "INSERT INTO `Property` (`Property`, `Value`) VALUES (?, ?)"

	propertyTable    = "Property"
	productCodeName  = "ProductCode"
	defaultNotFound  = "default ICE ruleset not found"
	workCopyFileMode = 0o644
)

// prepared is a working copy ready for actions.
type prepared struct {
	copyPath  string
	db        engine.Database
	session   engine.Session
	actions   []string
	conflicts int
}

// close releases the session and database.
func (p *prepared) close() error {
	var errs []error
	if p.session != nil {
		errs = append(errs, p.session.Close())
	}
	if p.db != nil {
		errs = append(errs, p.db.Close())
	}
	return errors.Join(errs...)
}

// copyDatabase copies src into dir under its base name, replacing any
// existing file, and leaves the copy writable.
func copyDatabase(src, dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if same, err := samePath(src, dst); err != nil {
		return "", err
	} else if same {
		return "", fmt.Errorf("working copy %s would overwrite the source", dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(in)

	// A read-only copy left by a previous run cannot be truncated.
	if info, err := os.Stat(dst); err == nil && info.Mode().Perm()&0o200 == 0 {
		if err := os.Chmod(dst, info.Mode().Perm()|0o200); err != nil {
			return "", err
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, workCopyFileMode)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		iox.DiscardClose(out)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dst, os.Chmod(dst, workCopyFileMode)
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// prepare builds the working copy for item and opens a session on it.
// On error everything opened so far is closed.
func (v *Validator) prepare(item string) (_ *prepared, err error) {
	logger := v.logger.WithItem(item)
	p := &prepared{}
	defer func() {
		if err != nil {
			_ = p.close()
		}
	}()
	fail := func(phase Phase, cause error) error {
		return &PreparationError{Item: item, Phase: phase, Err: cause}
	}

	if p.copyPath, err = copyDatabase(item, v.config.WorkDir); err != nil {
		return nil, fail(PhaseCopy, err)
	}
	logger.Debug("copied database", map[string]any{"source": item, "copy": p.copyPath})

	if p.db, err = v.engine.OpenDatabase(p.copyPath, engine.OpenDirect); err != nil {
		return nil, fail(PhaseOpen, err)
	}

	for _, t := range v.config.Transforms {
		if err = p.db.ApplyTransform(t); err != nil {
			return nil, fail(PhaseTransform, fmt.Errorf("%s: %w", t, err))
		}
		logger.Debug("applied transform", map[string]any{"transform": t})
	}

	hasProperty := p.db.IsTablePersistent(propertyTable)
	var productCode string
	if hasProperty {
		values, qerr := p.db.QueryStrings(queryProductCode, productCodeName)
		if qerr != nil {
			return nil, fail(PhaseIdentity, qerr)
		}
		if len(values) > 0 {
			productCode = values[0]
		}
	}

	if err = v.mergeRulesets(p, item, logger); err != nil {
		return nil, err
	}

	if !hasProperty && p.db.IsTablePersistent(propertyTable) {
		if err = p.db.Execute(stmtDropProperty); err != nil {
			return nil, fail(PhaseIdentity, err)
		}
	}

	if p.actions, err = p.db.QueryStrings(queryICESequence); err != nil {
		return nil, fail(PhaseSequence, err)
	}

	if p.session, err = v.engine.OpenSession(p.db); err != nil {
		return nil, fail(PhaseSession, err)
	}

	if productCode != "" {
		if err = p.db.Execute(stmtDeleteProperty, productCodeName); err != nil {
			return nil, fail(PhaseIdentity, err)
		}
		if err = p.db.Execute(stmtInsertProperty, productCodeName, productCode); err != nil {
			return nil, fail(PhaseIdentity, err)
		}
	}
	return p, nil
}

// mergeRulesets merges the default ruleset, unless suppressed, then the
// additional rulesets. Merge conflicts are tolerated and counted.
func (v *Validator) mergeRulesets(p *prepared, item string, logger *log.Logger) error {
	if !v.config.NoDefaultRuleset {
		if path, ok := v.defaultRuleset(); ok {
			if err := v.merge(p, item, path, logger); err != nil {
				return err
			}
		} else {
			logger.Warn(defaultNotFound, nil)
			v.deliverWarning(item, defaultNotFound)
		}
	}

	if len(v.config.Rulesets) == 0 {
		return nil
	}
	for _, path := range v.config.Rulesets {
		if err := v.merge(p, item, path, logger); err != nil {
			return err
		}
	}
	if err := p.db.Commit(); err != nil {
		return &PreparationError{Item: item, Phase: PhaseCommit, Err: err}
	}
	return nil
}

func (v *Validator) merge(p *prepared, item, path string, logger *log.Logger) error {
	logger.Debug("merging ruleset", map[string]any{"ruleset": path, "database": p.copyPath})
	err := p.db.Merge(path)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrMergeConflict):
		p.conflicts++
		v.config.Collector.IncConflictSuppressed()
		logger.Warn("merge conflict suppressed", map[string]any{"ruleset": path, "error": err.Error()})
	default:
		return &PreparationError{Item: item, Phase: PhaseMerge, Err: fmt.Errorf("%s: %w", path, err)}
	}
	v.config.Collector.IncRulesetMerged()
	return nil
}

func (v *Validator) defaultRuleset() (string, bool) {
	if v.config.DefaultRuleset != "" {
		return v.config.DefaultRuleset, true
	}
	return v.engine.DefaultRuleset()
}
