// Package playbook maps detection rules to incident-response guidance.
//
// The catalog is embedded at build time and parsed once. Playbooks are joined
// to alerts when they are read and are never persisted with them.
package playbook

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Entry is the response guidance for one rule.
type Entry struct {
	Title   string   `yaml:"title" json:"title"`
	Risk    string   `yaml:"risk" json:"risk"`
	Actions []string `yaml:"actions" json:"actions"`
}

// View is an alert as presented to readers, with its playbook when one exists.
type View struct {
	alert.Alert
	Playbook *Entry `json:"playbook,omitempty"`
}

var catalog = sync.OnceValue(func() map[string]Entry {
	c, err := parseCatalog(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("playbook: embedded catalog: %v", err))
	}
	return c
})

func parseCatalog(data []byte) (map[string]Entry, error) {
	var c map[string]Entry
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	for name, e := range c {
		if e.Title == "" || len(e.Actions) == 0 {
			return nil, fmt.Errorf("entry %q needs a title and at least one action", name)
		}
	}
	return c, nil
}

// Lookup returns the playbook for rule. Unknown rules report false.
func Lookup(rule string) (Entry, bool) {
	e, ok := catalog()[rule]
	if !ok {
		return Entry{}, false
	}
	e.Actions = append([]string(nil), e.Actions...)
	return e, true
}

// Rules returns the rule names that have a playbook, sorted.
func Rules() []string {
	c := catalog()
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every playbook ordered by rule name.
func All() []Entry {
	names := Rules()
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		e, _ := Lookup(name)
		out = append(out, e)
	}
	return out
}

// Attach pairs each alert with its playbook. The alerts are not modified.
func Attach(alerts []alert.Alert) []View {
	views := make([]View, 0, len(alerts))
	for _, a := range alerts {
		v := View{Alert: a}
		if e, ok := Lookup(a.Rule); ok {
			v.Playbook = &e
		}
		views = append(views, v)
	}
	return views
}
