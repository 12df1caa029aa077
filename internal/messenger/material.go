package messenger

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Krakenied/MiniMessenger/internal/log"
)

// Material is a validated item-type identifier such as "OAK_LOG".
type Material string

// MaterialValidator reports whether name is a known material.
type MaterialValidator func(name string) bool

// IdentifierMaterials accepts any upper-snake identifier: an ASCII capital
// letter followed by capitals, digits and underscores. It is the default when
// the host does not supply its own set.
func IdentifierMaterials(name string) bool {
	if name == "" || name[0] < 'A' || name[0] > 'Z' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// MaterialSet returns a validator accepting exactly the given names.
func MaterialSet(names ...string) MaterialValidator {
	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := known[name]
		return ok
	}
}

// GetMaterial returns the material named by the string at key.
func (s *Store) GetMaterial(key string) (Material, error) {
	name, err := s.GetString(key)
	if err != nil {
		return "", err
	}
	if !s.materials(name) {
		return "", s.invalidMaterial(key, name)
	}
	return Material(name), nil
}

// GetMaterialList returns the materials named by the list at key. Every
// invalid entry is reported, not just the first.
func (s *Store) GetMaterialList(key string) ([]Material, error) {
	names, err := s.GetStringList(key)
	if err != nil {
		return nil, err
	}

	out := make([]Material, 0, len(names))
	var errs error
	for _, name := range names {
		if !s.materials(name) {
			errs = multierr.Append(errs, s.invalidMaterial(key, name))
			continue
		}
		out = append(out, Material(name))
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func (s *Store) invalidMaterial(key, name string) error {
	err := fmt.Errorf("%w: %q at %s", ErrInvalidMaterial, name, s.GetPath(key))
	log.Warn("config lookup failed", "path", s.GetPath(key), "error", err)
	return err
}
