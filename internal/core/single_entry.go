package core

// single_entry.go tracks dirty state for free-text plan fields.
//
// Each field holds its current value and the snapshot captured at load time
// or after the last successful save. A field is dirty when either its content
// or its image differs from the snapshot. A failed save leaves both untouched.

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
)

// DefaultMaxImageBytes is the largest image UpdateImage accepts.
const DefaultMaxImageBytes = 5 << 20

// EntryValue is the editable part of a single entry.
type EntryValue struct {
	Content   string  `json:"content"`
	ImageData *string `json:"image_data"`
}

func (v EntryValue) equal(o EntryValue) bool {
	if v.Content != o.Content {
		return false
	}
	if v.ImageData == nil || o.ImageData == nil {
		return v.ImageData == nil && o.ImageData == nil
	}
	return *v.ImageData == *o.ImageData
}

type entryField struct {
	current EntryValue
	initial EntryValue
}

// SingleEntryController manages the fields of one project page.
// It is safe for concurrent use.
type SingleEntryController struct {
	mu            sync.Mutex
	adapter       SingleEntryAdapter
	fields        map[string]*entryField
	maxImageBytes int64
}

// SingleEntryOption configures a SingleEntryController.
type SingleEntryOption func(*SingleEntryController)

// WithMaxImageBytes sets the largest accepted image.
func WithMaxImageBytes(n int64) SingleEntryOption {
	return func(c *SingleEntryController) {
		if n > 0 {
			c.maxImageBytes = n
		}
	}
}

// NewSingleEntryController creates a controller persisting through adapter.
func NewSingleEntryController(adapter SingleEntryAdapter, opts ...SingleEntryOption) *SingleEntryController {
	c := &SingleEntryController{
		adapter:       adapter,
		fields:        make(map[string]*entryField),
		maxImageBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches every field once and captures the clean snapshot.
// Fields the backend does not know yet start empty.
func (c *SingleEntryController) Load(ctx context.Context, fields ...string) error {
	for _, field := range fields {
		entry, err := c.adapter.GetEntry(ctx, field)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("load %s: %w", field, err)
		}
		c.Reset(field, EntryValue{Content: entry.Content, ImageData: entry.ImageData})
	}
	return nil
}

// Reset sets a field's value and snapshot, leaving it clean.
func (c *SingleEntryController) Reset(field string, v EntryValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields[field] = &entryField{current: v, initial: v}
}

func (c *SingleEntryController) fieldLocked(field string) *entryField {
	f, ok := c.fields[field]
	if !ok {
		f = &entryField{}
		c.fields[field] = f
	}
	return f
}

// Value returns the current value of a field.
func (c *SingleEntryController) Value(field string) EntryValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fieldLocked(field).current
}

// Fields returns every tracked field name, sorted.
func (c *SingleEntryController) Fields() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateContent replaces a field's text.
func (c *SingleEntryController) UpdateContent(field, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fieldLocked(field).current.Content = text
}

// UpdateImage reads r into a data URL and attaches it to the field.
// A nil reader clears the image.
func (c *SingleEntryController) UpdateImage(ctx context.Context, field string, r io.Reader) error {
	if r == nil {
		c.mu.Lock()
		c.fieldLocked(field).current.ImageData = nil
		c.mu.Unlock()
		return nil
	}

	url, err := c.readDataURL(ctx, r)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.fieldLocked(field).current.ImageData = &url
	c.mu.Unlock()
	return nil
}

// SetImageData sets an already encoded image, or clears it when data is nil.
func (c *SingleEntryController) SetImageData(field string, data *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data == nil {
		c.fieldLocked(field).current.ImageData = nil
		return
	}
	v := *data
	c.fieldLocked(field).current.ImageData = &v
}

func (c *SingleEntryController) readDataURL(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(r, c.maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > c.maxImageBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, c.maxImageBytes)
	}
	return DataURL(data), nil
}

// DataURL encodes data as a base64 data URL with a sniffed media type.
func DataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Save persists the field's current value. On success the snapshot becomes
// the saved value; on failure nothing changes.
func (c *SingleEntryController) Save(ctx context.Context, field string) (SingleEntry, error) {
	c.mu.Lock()
	v := c.fieldLocked(field).current
	c.mu.Unlock()

	saved, err := c.adapter.SaveEntry(ctx, SingleEntry{Field: field, Content: v.Content, ImageData: v.ImageData})
	if err != nil {
		return SingleEntry{}, err
	}

	c.mu.Lock()
	f := c.fieldLocked(field)
	f.initial = v
	c.mu.Unlock()
	return saved, nil
}

// IsDirty reports whether a field differs from its snapshot.
func (c *SingleEntryController) IsDirty(field string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.fields[field]
	if !ok {
		return false
	}
	return !f.current.equal(f.initial)
}

// DirtyFields returns the dirty field names, sorted.
func (c *SingleEntryController) DirtyFields() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dirty []string
	for name, f := range c.fields {
		if !f.current.equal(f.initial) {
			dirty = append(dirty, name)
		}
	}
	sort.Strings(dirty)
	return dirty
}

// HasUnsavedChanges reports whether any field is dirty.
func (c *SingleEntryController) HasUnsavedChanges() bool {
	return len(c.DirtyFields()) > 0
}
