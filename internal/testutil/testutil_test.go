// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func TestFakeClockTicks(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{}, time.Second)
	first := c.Now()
	if want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC); !first.Equal(want) {
		t.Errorf("first Now() = %v, want %v", first, want)
	}
	if d := c.Now().Sub(first); d != time.Second {
		t.Errorf("tick = %v, want 1s", d)
	}

	c.Advance(time.Minute)
	if d := c.Now().Sub(first); d != time.Minute+2*time.Second {
		t.Errorf("after Advance elapsed = %v, want 1m2s", d)
	}
}

func TestNewSigningKey(t *testing.T) {
	t.Parallel()

	key := NewSigningKey(t)
	if len(key.Binary) == 0 {
		t.Fatal("binary key is empty")
	}
	if !bytes.HasPrefix(key.Armored, []byte("-----BEGIN PGP PUBLIC KEY BLOCK-----")) {
		t.Errorf("armored key has unexpected header: %.40q", key.Armored)
	}
}

func TestMustWriteFileCreatesParents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "file.txt")
	MustWriteFile(t, path, "hello\n")
	if got := MustReadFile(t, path); got != "hello\n" {
		t.Errorf("MustReadFile() = %q", got)
	}
}

func TestContainerParallelism(t *testing.T) {
	t.Setenv("DASHBOOT_TEST_CONTAINER_PARALLEL", "5")
	if n := containerParallelism(); n != 5 {
		t.Errorf("containerParallelism() = %d, want 5", n)
	}

	t.Setenv("DASHBOOT_TEST_CONTAINER_PARALLEL", "zero")
	if n := containerParallelism(); n < 1 || n > 2 {
		t.Errorf("containerParallelism() fallback = %d, want 1 or 2", n)
	}
}
