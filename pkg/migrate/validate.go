package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

// ValidateDir validates migration filenames + basic SQL headers for every
// driver directory below root, and checks both drivers carry the same versions.
func ValidateDir(root string) error {
	if root == "" {
		return fmt.Errorf("dir is required")
	}
	return validateDrivers(func(driver string) (fs.FS, error) {
		return os.DirFS(DirFor(root, driver)), nil
	})
}

// ValidateEmbedded runs the same checks against the compiled-in migrations.
func ValidateEmbedded() error {
	return validateDrivers(Embedded)
}

func validateDrivers(open func(driver string) (fs.FS, error)) error {
	var reference []string
	for i, driver := range drivers {
		fsys, err := open(driver)
		if err != nil {
			return err
		}
		versions, err := validateFS(fsys)
		if err != nil {
			return fmt.Errorf("%s: %w", driver, err)
		}
		if i == 0 {
			reference = versions
			continue
		}
		if !slices.Equal(reference, versions) {
			return fmt.Errorf("%s migrations %v do not match %s migrations %v", driver, versions, drivers[0], reference)
		}
	}
	return nil
}

// validateFS returns the sorted versions found in fsys.
func validateFS(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	seen := map[string]string{} // version -> filename
	versions := []string{}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name
		versions = append(versions, version)

		b, err := fs.ReadFile(fsys, path.Clean(name))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", name, err)
		}

		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
	}

	slices.Sort(versions)
	return versions, nil
}
