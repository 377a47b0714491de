// Package docfile reads invoice and purchase order descriptions from YAML files.
package docfile

import (
	"fmt"
	"os"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/tally/internal/document"
	"github.com/starford/tally/internal/models"
)

// File is the on-disk form of a document. Header keys are header field names;
// missing keys keep the kind's defaults.
type File struct {
	Kind   models.Kind       `json:"kind" yaml:"kind"`
	Header map[string]string `json:"header,omitempty" yaml:"header,omitempty"`
	Items  []models.Item     `json:"items,omitempty" yaml:"items,omitempty"`
}

// Validate checks the kind and that every header key belongs to it.
func (f File) Validate() error {
	if err := validation.ValidateStruct(&f,
		validation.Field(&f.Kind, validation.Required,
			validation.In(models.KindInvoice, models.KindPurchaseOrder)),
	); err != nil {
		return err
	}

	d, err := document.New(f.Kind)
	if err != nil {
		return err
	}
	keys := make([]*validation.KeyRules, 0, len(d.Fields()))
	for _, field := range d.Fields() {
		keys = append(keys, validation.Key(string(field)).Optional())
	}
	return validation.ValidateStruct(&f,
		validation.Field(&f.Header, validation.Map(keys...)),
	)
}

// Parse decodes and validates a YAML document description.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("docfile: parse: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("docfile: validate: %w", err)
	}
	return &f, nil
}

// Build applies the file to a fresh document through the regular editing
// operations, so the result obeys the same invariants as an edited one.
func (f *File) Build() (*document.Document, error) {
	d, err := document.New(f.Kind)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(f.Header))
	for k := range f.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := d.SetHeaderField(models.HeaderField(k), f.Header[k]); err != nil {
			return nil, err
		}
	}

	for i, it := range f.Items {
		if i > 0 {
			d.AddItem()
		}
		for _, kv := range []struct {
			field models.ItemField
			value string
		}{
			{models.ItemName, it.Name},
			{models.ItemQuantity, it.Quantity},
			{models.ItemPrice, it.Price},
		} {
			if err := d.SetItemField(i, kv.field, kv.value); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// Load reads, validates and builds the document at path.
func Load(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Build()
}

// FromDocument returns the file form of d. Only the kind's own header fields
// are written.
func FromDocument(d *document.Document) File {
	f := File{
		Kind:   d.Kind(),
		Header: make(map[string]string, len(d.Fields())),
		Items:  d.Items(),
	}
	for _, field := range d.Fields() {
		v, _ := d.HeaderField(field)
		f.Header[string(field)] = v
	}
	return f
}

// Marshal encodes f as YAML.
func Marshal(f File) ([]byte, error) {
	return yaml.Marshal(f)
}
