// internal/browser/action/locator.go
package action

import (
	"fmt"
	"strings"
)

// Strategy is how a Locator's selector is interpreted.
type Strategy int

const (
	ByID Strategy = iota
	ByQuery
	ByName
)

func (s Strategy) String() string {
	switch s {
	case ByID:
		return "id"
	case ByQuery:
		return "css"
	case ByName:
		return "name"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Locator names an element in the remote document. Description is the
// human-readable name used in narration and diagnostics.
type Locator struct {
	Strategy    Strategy
	Selector    string
	Description string
}

// ID locates an element by its id attribute.
func ID(id, description string) Locator {
	return Locator{Strategy: ByID, Selector: id, Description: description}
}

// Query locates an element by CSS selector.
func Query(css, description string) Locator {
	return Locator{Strategy: ByQuery, Selector: css, Description: description}
}

// Name locates an element by its name attribute.
func Name(name, description string) Locator {
	return Locator{Strategy: ByName, Selector: name, Description: description}
}

// CSS returns the selector the driver is given.
func (l Locator) CSS() string {
	switch l.Strategy {
	case ByID:
		return "#" + l.Selector
	case ByName:
		return fmt.Sprintf(`[name="%s"]`, strings.ReplaceAll(l.Selector, `"`, `\"`))
	default:
		return l.Selector
	}
}

func (l Locator) String() string {
	return l.Strategy.String() + "=" + l.Selector
}

// describe falls back to the selector when no description was given.
func (l Locator) describe() string {
	if l.Description != "" {
		return l.Description
	}
	return l.String()
}
