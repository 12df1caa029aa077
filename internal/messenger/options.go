package messenger

import (
	"time"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/filesys"
)

type options struct {
	fs        filesys.FS
	root      string
	materials MaterialValidator
	server    audience.Broadcaster
	now       func() time.Time
}

func defaultOptions() options {
	return options{
		fs:        filesys.OS(),
		materials: IdentifierMaterials,
		now:       time.Now,
	}
}

// Opt is a function option for configuring a Store or Messenger.
type Opt func(o *options)

// WithFS replaces the file system used for the backing file.
func WithFS(fsys filesys.FS) Opt {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithRoot makes typed getters and GetPath resolve keys relative to the
// sub-table at path instead of the document root. A reload fails if the
// sub-table is missing.
func WithRoot(path string) Opt {
	return func(o *options) {
		o.root = path
	}
}

// WithMaterials replaces the material validator used by GetMaterial and
// GetMaterialList.
func WithMaterials(v MaterialValidator) Opt {
	return func(o *options) {
		if v != nil {
			o.materials = v
		}
	}
}

// WithServer sets the broadcast primitive used by the Broadcast family.
func WithServer(b audience.Broadcaster) Opt {
	return func(o *options) {
		o.server = b
	}
}

// WithClock overrides the time source used for quarantine suffixes and load
// timestamps.
func WithClock(now func() time.Time) Opt {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
