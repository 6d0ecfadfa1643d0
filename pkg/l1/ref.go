package l1

import (
	"fmt"
	"strings"
)

// ControllerRef identifies a controller as TYPE/ID, e.g. servo/3f2a.
type ControllerRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ParseRef parses TYPE/ID. ID must not contain "/".
func ParseRef(name string) (ControllerRef, error) {
	var ref ControllerRef
	pos := strings.Index(name, "/")
	if pos < 0 {
		return ControllerRef{Type: name}, fmt.Errorf("invalid controller %q, TYPE/ID expected", name)
	}
	ref.Type, ref.ID = name[:pos], name[pos+1:]
	if !ref.IsValid() || strings.Contains(ref.ID, "/") {
		return ref, fmt.Errorf("invalid controller %q, TYPE/ID expected", name)
	}
	return ref, nil
}

// Name formats the ref as TYPE/ID.
func (r ControllerRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid is true when both Type and ID are set.
func (r ControllerRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// ControllerMeta is what a controller publishes about itself.
type ControllerMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ControllerInfo is a discovered controller.
type ControllerInfo struct {
	Ref  ControllerRef  `json:"ref"`
	Meta ControllerMeta `json:"meta"`
}
