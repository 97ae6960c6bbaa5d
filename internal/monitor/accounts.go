package monitor

import (
	"os/user"
	"strconv"
	"sync"
)

// AccountResolver maps a numeric user id to an account name.
type AccountResolver interface {
	// LookupUID returns the account name for uid. ok is false when the host's
	// account directory has no entry for it.
	LookupUID(uid int) (name string, ok bool)
}

// SystemAccounts resolves uids through the host account database and caches
// both hits and misses, since process owners repeat on every pass.
type SystemAccounts struct {
	cache sync.Map // int -> accountEntry
}

type accountEntry struct {
	name string
	ok   bool
}

// NewSystemAccounts creates a caching resolver over os/user.
func NewSystemAccounts() *SystemAccounts {
	return &SystemAccounts{}
}

// LookupUID implements AccountResolver.
func (a *SystemAccounts) LookupUID(uid int) (string, bool) {
	if v, hit := a.cache.Load(uid); hit {
		e := v.(accountEntry)
		return e.name, e.ok
	}
	e := accountEntry{}
	if u, err := user.LookupId(strconv.Itoa(uid)); err == nil && u.Username != "" {
		e = accountEntry{name: u.Username, ok: true}
	}
	a.cache.Store(uid, e)
	return e.name, e.ok
}

// StaticAccounts is a fixed uid to name table.
type StaticAccounts map[int]string

// LookupUID implements AccountResolver.
func (s StaticAccounts) LookupUID(uid int) (string, bool) {
	name, ok := s[uid]
	return name, ok
}
