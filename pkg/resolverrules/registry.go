package resolverrules

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	matchers   = map[string]MatcherFunc{}
	appliers   = map[string]ApplierFunc{}
)

func init() {
	for k, fn := range builtinMatchers() {
		matchers[k] = fn
	}
	for k, fn := range builtinAppliers() {
		appliers[k] = fn
	}
}

// RegisterMatcher adds a named matcher. It is meant to be called from init
// functions; existing names are never replaced.
func RegisterMatcher(kind string, fn MatcherFunc) error {
	kind = strings.TrimSpace(kind)
	if kind == "" || fn == nil {
		return errors.New("matcher kind and func are required")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := matchers[kind]; ok {
		return fmt.Errorf("%w: matcher %q", ErrDuplicateKind, kind)
	}
	matchers[kind] = fn
	return nil
}

// RegisterApplier adds a named applier. Existing names are never replaced.
func RegisterApplier(kind string, fn ApplierFunc) error {
	kind = strings.TrimSpace(kind)
	if kind == "" || fn == nil {
		return errors.New("applier kind and func are required")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := appliers[kind]; ok {
		return fmt.Errorf("%w: applier %q", ErrDuplicateKind, kind)
	}
	appliers[kind] = fn
	return nil
}

// HasMatcher reports whether kind names a registered matcher.
func HasMatcher(kind string) bool {
	_, ok := lookupMatcher(kind)
	return ok
}

// HasApplier reports whether kind names a registered applier.
func HasApplier(kind string) bool {
	_, ok := lookupApplier(kind)
	return ok
}

func lookupMatcher(kind string) (MatcherFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := matchers[kind]
	return fn, ok
}

func lookupApplier(kind string) (ApplierFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := appliers[kind]
	return fn, ok
}
