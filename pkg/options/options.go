// Package options holds the flag sets passed to the eclcc compiler and the
// ecl runner, validates them against per-tool allow-lists and renders them
// into command lines.
package options

import (
	"fmt"
	"slices"
)

// Option is a single command-line flag. A Switch option renders as the bare
// flag; any other option renders as "flag value".
type Option struct {
	Name   string
	Value  string
	Switch bool
}

func (o Option) args() []string {
	if o.Switch {
		return []string{o.Name}
	}
	return []string{o.Name, o.Value}
}

// Options is an ordered set of flags. Setting a flag that is already present
// replaces its value in place, so rendering order is insertion order.
//
// The zero value is an empty set ready to use.
type Options struct {
	items []Option
}

// New returns an independent Options containing the given options in order.
func New(opts ...Option) *Options {
	o := &Options{items: make([]Option, 0, len(opts))}
	for _, opt := range opts {
		o.put(opt)
	}
	return o
}

// Flag returns a switch option such as -wu or -E.
func Flag(name string) Option {
	return Option{Name: name, Switch: true}
}

// Value returns a valued option. Non-string values are formatted with fmt.
func Value(name string, value any) Option {
	switch v := value.(type) {
	case string:
		return Option{Name: name, Value: v}
	default:
		return Option{Name: name, Value: fmt.Sprint(v)}
	}
}

// Clone returns a deep copy. A nil receiver yields an empty set.
func (o *Options) Clone() *Options {
	if o == nil {
		return New()
	}
	return &Options{items: slices.Clone(o.items)}
}

// Set stores a valued option.
func (o *Options) Set(name string, value any) {
	o.put(Value(name, value))
}

// SetFlag stores a switch option.
func (o *Options) SetFlag(name string) {
	o.put(Flag(name))
}

func (o *Options) put(opt Option) {
	if i := o.index(opt.Name); i >= 0 {
		o.items[i] = opt
		return
	}
	o.items = append(o.items, opt)
}

// Get returns the option stored under name.
func (o *Options) Get(name string) (Option, bool) {
	if o == nil {
		return Option{}, false
	}
	if i := o.index(name); i >= 0 {
		return o.items[i], true
	}
	return Option{}, false
}

// Has reports whether name is present.
func (o *Options) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// Delete removes name and reports whether it was present.
func (o *Options) Delete(name string) bool {
	i := o.index(name)
	if i < 0 {
		return false
	}
	o.items = slices.Delete(o.items, i, i+1)
	return true
}

// Len returns the number of options.
func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	return len(o.items)
}

// Names returns the flag names in order.
func (o *Options) Names() []string {
	if o == nil {
		return nil
	}
	names := make([]string, len(o.items))
	for i, opt := range o.items {
		names[i] = opt.Name
	}
	return names
}

// All returns a copy of the options in order.
func (o *Options) All() []Option {
	if o == nil {
		return nil
	}
	return slices.Clone(o.items)
}

func (o *Options) index(name string) int {
	return slices.IndexFunc(o.items, func(opt Option) bool {
		return opt.Name == name
	})
}

// Args renders the options as argv entries.
func (o *Options) Args() []string {
	return o.render(nil)
}

func (o *Options) render(mask func(Option) (string, bool)) []string {
	if o == nil {
		return nil
	}
	args := make([]string, 0, 2*len(o.items))
	for _, opt := range o.items {
		if mask != nil && !opt.Switch {
			if masked, ok := mask(opt); ok {
				args = append(args, opt.Name, masked)
				continue
			}
		}
		args = append(args, opt.args()...)
	}
	return args
}
