package render

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// StyleAuto picks dark or light based on the terminal background.
const StyleAuto = "auto"

// builtinStyles are glamour's shipped style names.
var builtinStyles = []string{
	StyleAuto, "ascii", "dark", "dracula", "light", "notty", "pink", "tokyo-night",
}

// Styles lists the selectable terminal style names.
func Styles() []string {
	out := make([]string, len(builtinStyles))
	copy(out, builtinStyles)
	return out
}

// ResolveStyle maps a user-typed style name to a known one, accepting
// fuzzy matches ("drac" resolves to "dracula"). Exact names win.
func ResolveStyle(name string) (string, error) {
	if name == "" {
		return StyleAuto, nil
	}
	for _, style := range builtinStyles {
		if style == name {
			return style, nil
		}
	}
	matches := fuzzy.Find(name, builtinStyles)
	if len(matches) == 0 {
		return "", fmt.Errorf("unknown style %q (available: %s)", name, strings.Join(builtinStyles, ", "))
	}
	return matches[0].Str, nil
}
