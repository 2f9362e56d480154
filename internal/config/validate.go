package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/npratt/mindmesh/internal/storage"
)

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	return validation.Errors{
		"document":     c.Document.Validate(),
		"editor":       c.Editor.Validate(),
		"tui":          c.TUI.Validate(),
		"storage":      c.Storage.Validate(),
		"log_rotation": c.LogRotation.Validate(),
		"paths":        c.Paths.Validate(),
	}.Filter()
}

// Validate checks the document section.
func (d DocumentConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Sample, validation.In(SampleNone, SampleStatic, SampleProcedural)),
	)
}

// Validate checks the editor section.
func (e EditorConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ChildDistance, validation.Required, validation.Min(0.0).Exclusive()),
	)
}

// Validate checks the TUI section.
func (t TUIConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.CellWidth, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&t.CellHeight, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&t.AutosaveInterval, validation.Min(time.Duration(0))),
	)
}

// Validate checks the storage section.
func (s StorageConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Format, validation.Required, validation.By(validFormat)),
		validation.Field(&s.WatchDebounce, validation.Min(time.Duration(0))),
	)
}

// Validate checks the log rotation section.
func (l LogRotationConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.MaxSizeMB, validation.Min(0)),
		validation.Field(&l.MaxBackups, validation.Min(0)),
		validation.Field(&l.MaxAgeDays, validation.Min(0)),
	)
}

// Validate checks the paths section.
func (p PathsConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Log, validation.Required),
		validation.Field(&p.Activity, validation.Required),
		validation.Field(&p.State, validation.Required),
	)
}

func validFormat(value any) error {
	name, _ := value.(string)
	_, err := storage.ParseFormat(name)
	return err
}
