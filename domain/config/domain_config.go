package config

import (
	"fmt"
	"time"
)

// EditorConfig holds all configurable editing rules and policy thresholds
type EditorConfig struct {
	// History
	MaxUndoDepth int `yaml:"max_undo_depth" validate:"min=1"`

	// Canvas
	GridSize       int     `yaml:"grid_size" validate:"min=0"`
	SnapToGrid     bool    `yaml:"snap_to_grid"`
	DataPropertyDX float64 `yaml:"data_property_dx"`
	DataPropertyDY float64 `yaml:"data_property_dy"`
	NoteDX         float64 `yaml:"note_dx"`
	NoteDY         float64 `yaml:"note_dy"`

	// Defaults for new elements
	DefaultPredicate    string `yaml:"default_predicate" validate:"required"`
	DefaultClassLabel   string `yaml:"default_class_label"`
	DefaultNoteType     string `yaml:"default_note_type" validate:"required"`
	DataPropertyLabelFn string `yaml:"data_property_label_format" validate:"required"`

	// Autosave
	DebounceWindow      time.Duration `yaml:"debounce_window" validate:"min=0"`
	MaxSaveRetries      int           `yaml:"max_save_retries" validate:"min=0"`
	NotifyAfterFailures int           `yaml:"notify_after_failures" validate:"min=1"`
	FlushTimeout        time.Duration `yaml:"flush_timeout"`
	SwitchPolicy        SwitchPolicy  `yaml:"switch_policy" validate:"oneof=flush discard"`

	// Connection rules
	AllowImportedObjectProperties bool `yaml:"allow_imported_object_properties"`
}

// SwitchPolicy decides what happens to a pending autosave when the active
// ontology changes before the debounce window closes.
type SwitchPolicy string

const (
	SwitchPolicyFlush   SwitchPolicy = "flush"
	SwitchPolicyDiscard SwitchPolicy = "discard"
)

// DefaultEditorConfig returns the default editor configuration
func DefaultEditorConfig() *EditorConfig {
	return &EditorConfig{
		MaxUndoDepth: 50,

		GridSize:       20,
		SnapToGrid:     true,
		DataPropertyDX: 120,
		DataPropertyDY: 0,
		NoteDX:         0,
		NoteDY:         -100,

		DefaultPredicate:    "relatedTo",
		DefaultClassLabel:   "New Class",
		DefaultNoteType:     "comment",
		DataPropertyLabelFn: "Data Property %d",

		DebounceWindow:      150 * time.Millisecond,
		MaxSaveRetries:      5,
		NotifyAfterFailures: 3,
		FlushTimeout:        5 * time.Second,
		SwitchPolicy:        SwitchPolicyFlush,

		AllowImportedObjectProperties: false,
	}
}

// ProductionEditorConfig returns production-specific configuration
func ProductionEditorConfig() *EditorConfig {
	config := DefaultEditorConfig()

	// Fewer, larger writes against the shared store
	config.DebounceWindow = 250 * time.Millisecond
	config.MaxSaveRetries = 8

	return config
}

// DevelopmentEditorConfig returns development-specific configuration
func DevelopmentEditorConfig() *EditorConfig {
	config := DefaultEditorConfig()

	config.DebounceWindow = 100 * time.Millisecond
	config.NotifyAfterFailures = 1

	return config
}

// LoadEditorConfig loads editor configuration based on environment
func LoadEditorConfig(environment string) *EditorConfig {
	switch environment {
	case "production":
		return ProductionEditorConfig()
	case "development":
		return DevelopmentEditorConfig()
	default:
		return DefaultEditorConfig()
	}
}

// DataPropertyLabel renders the default label of the n-th data property.
func (c *EditorConfig) DataPropertyLabel(n int) string {
	return fmt.Sprintf(c.DataPropertyLabelFn, n)
}

// Validate checks if the configuration is valid
func (c *EditorConfig) Validate() error {
	if c.MaxUndoDepth < 1 {
		return fmt.Errorf("max undo depth must be positive, got %d", c.MaxUndoDepth)
	}
	if c.GridSize < 0 {
		return fmt.Errorf("grid size must not be negative, got %d", c.GridSize)
	}
	if c.NotifyAfterFailures < 1 {
		return fmt.Errorf("notify threshold must be positive, got %d", c.NotifyAfterFailures)
	}
	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative")
	}
	switch c.SwitchPolicy {
	case SwitchPolicyFlush, SwitchPolicyDiscard:
	default:
		return fmt.Errorf("unknown switch policy %q", c.SwitchPolicy)
	}
	return nil
}
