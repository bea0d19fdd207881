package stage

import (
	"sort"

	"waxcrate/internal/records"
)

// Well-known context keys shared by the pipeline stages.
const (
	KeyPreview        = "preview"
	KeyPreviewID      = "preview_id"
	KeyOwnerID        = "owner_id"
	KeyForceExpensive = "force_expensive"
	KeyCorrections    = "corrections"
	KeyResult         = "result"
)

// Context is the typed bag handed through the pipeline. It carries stage
// inputs and outputs; the engine validates declared keys against it before
// dispatching a stage.
type Context struct {
	values map[string]any
}

// NewContext constructs an empty stage context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Set stores a value under key.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	value, ok := c.values[key]
	return value, ok
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns the present keys in sorted order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Preview returns the preview record stored under KeyPreview.
func (c *Context) Preview() (*records.PreviewRecord, bool) {
	value, ok := c.values[KeyPreview]
	if !ok {
		return nil, false
	}
	rec, ok := value.(*records.PreviewRecord)
	return rec, ok && rec != nil
}

// OwnerID returns the owner identifier stored under KeyOwnerID.
func (c *Context) OwnerID() (string, bool) {
	value, ok := c.values[KeyOwnerID]
	if !ok {
		return "", false
	}
	owner, ok := value.(string)
	return owner, ok && owner != ""
}

// String reads a string value under key, defaulting to empty.
func (c *Context) String(key string) string {
	value, ok := c.values[key]
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

// Bool reads a boolean value under key, defaulting to false.
func (c *Context) Bool(key string) bool {
	value, ok := c.values[key]
	if !ok {
		return false
	}
	b, _ := value.(bool)
	return b
}

// Fields returns a records.Fields value stored under key.
func (c *Context) Fields(key string) (records.Fields, bool) {
	value, ok := c.values[key]
	if !ok {
		return records.Fields{}, false
	}
	fields, ok := value.(records.Fields)
	return fields, ok
}
