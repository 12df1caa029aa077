package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Krakenied/MiniMessenger/pkg/api"
)

// placeholderFlags holds the flags shared by render, send and broadcast.
type placeholderFlags struct {
	unparsed []string
	parsed   []string
	prefixed bool
}

func (f *placeholderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.unparsed, "placeholder", "p", nil, "name=value inserted as literal text (repeatable)")
	cmd.Flags().StringArrayVarP(&f.parsed, "parsed", "P", nil, "name=value whose value is parsed as markup (repeatable)")
	cmd.Flags().BoolVar(&f.prefixed, "prefixed", false, "put the configured prefix in front")
}

// placeholders returns literal placeholders first, then parsed ones, each in
// flag order.
func (f *placeholderFlags) placeholders() ([]api.Placeholder, error) {
	out := make([]api.Placeholder, 0, len(f.unparsed)+len(f.parsed))
	for _, raw := range f.unparsed {
		p, err := parsePlaceholder(raw, false)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	for _, raw := range f.parsed {
		p, err := parsePlaceholder(raw, true)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func parsePlaceholder(raw string, parsed bool) (api.Placeholder, error) {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return api.Placeholder{}, fmt.Errorf("invalid placeholder %q, expected name=value", raw)
	}
	return api.Placeholder{Name: name, Value: value, Parsed: parsed}, nil
}
