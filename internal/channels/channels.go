// Package channels holds the ordered directory of YouTube channels the
// service can transcribe.
package channels

import (
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Channel is a single entry of the directory.
type Channel struct {
	// Name is the human-readable display name and lookup key.
	Name string `yaml:"name" json:"name"`

	// ID is the YouTube channel identifier (starts with "UC").
	ID string `yaml:"id" json:"id"`

	// Summarize reports whether summaries are offered for this channel.
	Summarize bool `yaml:"summarize" json:"summarize"`
}

// Defaults returns the built-in channel list in display order.
func Defaults() []Channel {
	return []Channel{
		{Name: "Ruben Gallego", ID: "UCxggVFesZy65a0WBT3_roXQ"},
		{Name: "Josh Stein", ID: "UCz1XsZYTzudZtHAIQvuEQAQ"},
		{Name: "Joyce Craig", ID: "UCBt2qbHd5ns7ryv3n0Y_bHw"},
		{Name: "Jacky Rosen", ID: "UCq2JO4WbdKPvTfcfmHPmWMw"},
		{Name: "Sherrod Brown", ID: "UCt_l7Nge_872rTm5Jvbo6Mw"},
		{Name: "Bob Casey", ID: "UCOak7SAWIvog_DN6dRMO3CA"},
		{Name: "Kamala Harris", ID: "UC0XBsJpPhOLg0k4x9ZwrWzw"},
		{Name: "Tammy Baldwin", ID: "UC_XjYCRbbI2_TDDjJidwk0Q"},
		{Name: "2WAY with Mark Halperin", ID: "UCq7OKQb6_1tbA73oSloIiZQ", Summarize: true},
	}
}

// Directory is an immutable, ordered set of channels keyed by name.
// It is safe for concurrent use.
type Directory struct {
	entries *orderedmap.OrderedMap[string, Channel]
}

// New builds a Directory from list, keeping its order. Names and IDs must be
// non-empty and names must be unique.
func New(list []Channel) (*Directory, error) {
	entries := orderedmap.New[string, Channel](len(list))
	var errs []error
	for i, ch := range list {
		ch.Name = strings.TrimSpace(ch.Name)
		ch.ID = strings.TrimSpace(ch.ID)
		if ch.Name == "" {
			errs = append(errs, fmt.Errorf("channels[%d]: name must not be empty", i))
			continue
		}
		if ch.ID == "" {
			errs = append(errs, fmt.Errorf("channels[%d] %q: id must not be empty", i, ch.Name))
			continue
		}
		if _, present := entries.Set(ch.Name, ch); present {
			errs = append(errs, fmt.Errorf("channels[%d]: duplicate name %q", i, ch.Name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("channels: %w", err)
	}
	return &Directory{entries: entries}, nil
}

// Default returns a Directory built from [Defaults].
func Default() *Directory {
	d, err := New(Defaults())
	if err != nil {
		panic(err)
	}
	return d
}

// Lookup returns the channel registered under name.
func (d *Directory) Lookup(name string) (Channel, bool) {
	return d.entries.Get(name)
}

// All returns every channel in display order. The returned slice is a copy.
func (d *Directory) All() []Channel {
	out := make([]Channel, 0, d.entries.Len())
	for p := d.entries.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// Names returns the channel names in display order.
func (d *Directory) Names() []string {
	out := make([]string, 0, d.entries.Len())
	for p := d.entries.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Len returns the number of channels.
func (d *Directory) Len() int { return d.entries.Len() }
