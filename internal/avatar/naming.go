package avatar

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"
)

// AllowedExtensions lists the accepted upload extensions, lower case.
var AllowedExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
}

// Extension returns the lower-cased text after the last dot, or "".
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// IsAllowed reports whether filename carries an accepted image extension.
func IsAllowed(filename string) bool {
	_, ok := AllowedExtensions[Extension(filename)]
	return ok
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces name to a single safe path component: separators
// become spaces, whitespace runs become underscores, everything outside
// [A-Za-z0-9_.-] is dropped and leading/trailing dots and underscores are
// trimmed. It may return "".
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Namer generates collision-free object names of the form
// user_<id>_<unix>_<original>. A second upload by the same user within the
// same second gets a counter joined to the timestamp with a hyphen:
// user_<id>_<unix>-<n>_<original>. The hyphen keeps counted names distinct
// from first uploads whose original name starts with digits.
type Namer struct {
	now func() time.Time

	mu   sync.Mutex
	last map[int64]stamp
}

// maxTrackedUsers bounds the per-user stamp table; entries from earlier
// seconds are dropped once it is exceeded.
const maxTrackedUsers = 4096

type stamp struct {
	sec int64
	seq int
}

// NewNamer returns a Namer on the wall clock.
func NewNamer() *Namer {
	return NewNamerWithClock(time.Now)
}

// NewNamerWithClock returns a Namer reading time from now.
func NewNamerWithClock(now func() time.Time) *Namer {
	return &Namer{now: now, last: make(map[int64]stamp)}
}

// Name returns the sanitized object name for an upload.
func (n *Namer) Name(userID int64, originalName string) string {
	sec := n.now().Unix()

	n.mu.Lock()
	st := n.last[userID]
	if st.sec == sec {
		st.seq++
	} else {
		st = stamp{sec: sec}
	}
	n.last[userID] = st
	if len(n.last) > maxTrackedUsers {
		for id, old := range n.last {
			if old.sec != sec {
				delete(n.last, id)
			}
		}
	}
	n.mu.Unlock()

	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	raw := fmt.Sprintf("user_%d_%d_%s", userID, sec, base)
	if st.seq > 0 {
		raw = fmt.Sprintf("user_%d_%d-%d_%s", userID, sec, st.seq, base)
	}
	return SecureFilename(raw)
}
