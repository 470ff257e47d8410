package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// Embedded describes the migration set compiled into the binary.
type Embedded struct {
	Latest   uint
	Checksum string
}

// Describe returns the highest embedded version and a checksum over every up
// migration, in filename order.
func Describe() (Embedded, error) {
	return describe(embeddedMigrations, migrationsDir)
}

func describe(fsys fs.FS, dir string) (Embedded, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return Embedded{}, fmt.Errorf("list migrations: %w", err)
	}

	var names []string
	var latest uint
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name())
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		version, ok := parseVersion(name)
		if !ok {
			return Embedded{}, fmt.Errorf("invalid migration filename: %s", name)
		}
		if version > latest {
			latest = version
		}
		names = append(names, name)
	}
	if latest == 0 {
		return Embedded{}, errors.New("no embedded migrations found")
	}
	sort.Strings(names)

	hasher := sha256.New()
	for _, name := range names {
		content, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return Embedded{}, fmt.Errorf("read migration %s: %w", name, err)
		}
		_, _ = hasher.Write([]byte(name))
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.Write(content)
		_, _ = hasher.Write([]byte{0})
	}

	return Embedded{Latest: latest, Checksum: hex.EncodeToString(hasher.Sum(nil))}, nil
}

func parseVersion(name string) (uint, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found || prefix == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}
