package avatar

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.png", true},
		{"photo.PNG", true},
		{"a.b.JpEg", true},
		{"anim.gif", true},
		{"photo.jpg", true},
		{"photo.exe", false},
		{"png", false},
		{"photo.", false},
		{"photo.png.exe", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowed(tt.name))
		})
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My cool photo.png", "My_cool_photo.png"},
		{"../../etc/passwd", "etc_passwd"},
		{`..\..\win.ini`, "win.ini"},
		{"ünïcödé.png", "ncd.png"},
		{"a$b%c.gif", "abc.gif"},
		{"...", ""},
		{"_hidden_.png_", "hidden_.png"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func fixedClock(ts ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestNamer_Format(t *testing.T) {
	n := NewNamerWithClock(fixedClock(time.Unix(1700000000, 0)))
	assert.Equal(t, "user_7_1700000000_photo.png", n.Name(7, "photo.png"))
}

func TestNamer_SameSecondGetsCounter(t *testing.T) {
	sec := time.Unix(1700000000, 0)
	n := NewNamerWithClock(fixedClock(sec, sec.Add(300*time.Millisecond), sec.Add(time.Second)))

	first := n.Name(7, "photo.png")
	second := n.Name(7, "photo.png")
	third := n.Name(7, "photo.png")

	assert.Equal(t, "user_7_1700000000_photo.png", first)
	assert.Equal(t, "user_7_1700000000-1_photo.png", second)
	assert.Equal(t, "user_7_1700000001_photo.png", third)
}

func TestNamer_UsersDoNotShareCounter(t *testing.T) {
	n := NewNamerWithClock(fixedClock(time.Unix(1700000000, 0)))
	assert.Equal(t, "user_1_1700000000_a.png", n.Name(1, "a.png"))
	assert.Equal(t, "user_2_1700000000_a.png", n.Name(2, "a.png"))
}

func TestNamer_StripsClientPath(t *testing.T) {
	n := NewNamerWithClock(fixedClock(time.Unix(10, 0)))
	assert.Equal(t, "user_3_10_me.jpg", n.Name(3, `C:\Users\me\me.jpg`))
	assert.Equal(t, "user_3_10-1_x.jpg", n.Name(3, "../../x.jpg"))
}

func TestNamer_ConcurrentUniqueness(t *testing.T) {
	n := NewNamerWithClock(fixedClock(time.Unix(1700000000, 0)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := n.Name(7, "photo.png")
			mu.Lock()
			seen[name] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestNamer_PrunesOldStamps(t *testing.T) {
	sec := time.Unix(100, 0)
	clock := sec
	n := NewNamerWithClock(func() time.Time { return clock })
	for i := 0; i <= maxTrackedUsers; i++ {
		n.Name(int64(i), "a.png")
	}
	clock = sec.Add(time.Second)
	n.Name(-1, "a.png")
	assert.Len(t, n.last, 1, fmt.Sprintf("expected only the current second's stamp, got %d", len(n.last)))
}

func TestNamer_CounterDoesNotMimicNumericPrefix(t *testing.T) {
	n := NewNamerWithClock(fixedClock(time.Unix(1700000000, 0)))

	first := n.Name(7, "1_photo.png")
	second := n.Name(7, "photo.png")
	third := n.Name(7, "1_photo.png")

	assert.Equal(t, "user_7_1700000000_1_photo.png", first)
	assert.Equal(t, "user_7_1700000000-1_photo.png", second)
	assert.Equal(t, "user_7_1700000000-2_1_photo.png", third)
	assert.NotEqual(t, first, second)
}
