package scenario

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LocatorPart is one CSS selector in a locator chain. When Nth is set the
// part resolves to the single element at that index (negative counts from
// the end).
type LocatorPart struct {
	Selector string `yaml:"selector" json:"selector"`
	Nth      *int   `yaml:"nth,omitempty" json:"nth,omitempty"`
}

// Locator describes how to find elements in the page. Frames are iframe
// selectors applied from the top-level document inward; Parts are applied
// within the innermost frame document, each scoped to the previous part's
// matches. Locators are values: every builder method returns a copy.
type Locator struct {
	Frames []string      `yaml:"frames,omitempty" json:"frames,omitempty"`
	Parts  []LocatorPart `yaml:"parts" json:"parts"`
}

// FrameLocator scopes locators to the document of an iframe.
type FrameLocator struct {
	frames []string
}

// Page returns a locator for selector in the top-level document.
func Page(selector string) Locator {
	return Locator{Parts: []LocatorPart{{Selector: selector}}}
}

// Frame returns a scope for the iframe matched by selector.
func Frame(selector string) FrameLocator {
	return FrameLocator{frames: []string{selector}}
}

// Frame nests a further iframe inside the current scope.
func (f FrameLocator) Frame(selector string) FrameLocator {
	frames := make([]string, 0, len(f.frames)+1)
	frames = append(frames, f.frames...)
	return FrameLocator{frames: append(frames, selector)}
}

// Locator returns a locator for selector inside the frame scope.
func (f FrameLocator) Locator(selector string) Locator {
	return Locator{
		Frames: append([]string(nil), f.frames...),
		Parts:  []LocatorPart{{Selector: selector}},
	}
}

// Locator narrows the locator to descendants matching selector.
func (l Locator) Locator(selector string) Locator {
	out := l.clone()
	out.Parts = append(out.Parts, LocatorPart{Selector: selector})
	return out
}

// Nth picks the element at index i from the current matches.
func (l Locator) Nth(i int) Locator {
	out := l.clone()
	if len(out.Parts) == 0 {
		return out
	}
	n := i
	out.Parts[len(out.Parts)-1].Nth = &n
	return out
}

// First is Nth(0).
func (l Locator) First() Locator { return l.Nth(0) }

// Last is Nth(-1).
func (l Locator) Last() Locator { return l.Nth(-1) }

// Indexed reports whether the final part selects a single index, which
// exempts the locator from the single-match rule for actions.
func (l Locator) Indexed() bool {
	if len(l.Parts) == 0 {
		return false
	}
	return l.Parts[len(l.Parts)-1].Nth != nil
}

// Validate checks that the locator has at least one non-empty selector.
func (l Locator) Validate() error {
	if len(l.Parts) == 0 {
		return errors.New("locator has no selector")
	}
	for i, f := range l.Frames {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("frames[%d] is empty", i)
		}
	}
	for i, p := range l.Parts {
		if strings.TrimSpace(p.Selector) == "" {
			return fmt.Errorf("parts[%d] missing selector", i)
		}
	}
	return nil
}

// String renders the locator as a chain, e.g.
// `frame(#demoFrame) >> #frameButton` or `#dataTable tbody tr >> nth=1 >> td`.
func (l Locator) String() string {
	segs := make([]string, 0, len(l.Frames)+2*len(l.Parts))
	for _, f := range l.Frames {
		segs = append(segs, "frame("+f+")")
	}
	for _, p := range l.Parts {
		segs = append(segs, p.Selector)
		if p.Nth != nil {
			segs = append(segs, "nth="+strconv.Itoa(*p.Nth))
		}
	}
	return strings.Join(segs, " >> ")
}

func (l Locator) clone() Locator {
	out := Locator{
		Frames: append([]string(nil), l.Frames...),
		Parts:  make([]LocatorPart, len(l.Parts)),
	}
	for i, p := range l.Parts {
		out.Parts[i] = LocatorPart{Selector: p.Selector}
		if p.Nth != nil {
			n := *p.Nth
			out.Parts[i].Nth = &n
		}
	}
	return out
}

// UnmarshalYAML accepts either a bare selector string or a mapping with
// frames/parts, or the short form {frame, selector, nth}.
func (l *Locator) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var sel string
		if err := value.Decode(&sel); err != nil {
			return err
		}
		*l = Page(sel)
		return nil
	}

	var raw struct {
		Frame    string        `yaml:"frame"`
		Frames   []string      `yaml:"frames"`
		Selector string        `yaml:"selector"`
		Nth      *int          `yaml:"nth"`
		Parts    []LocatorPart `yaml:"parts"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	out := Locator{Frames: raw.Frames, Parts: raw.Parts}
	if raw.Frame != "" {
		out.Frames = append([]string{raw.Frame}, out.Frames...)
	}
	if raw.Selector != "" {
		out.Parts = append([]LocatorPart{{Selector: raw.Selector, Nth: raw.Nth}}, out.Parts...)
	}
	*l = out
	return nil
}
