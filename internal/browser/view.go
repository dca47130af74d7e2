package browser

import "strings"

// View is the secret name list of one vault with an optional substring
// filter. Filtering always runs over the full list fetched on entry.
type View struct {
	Vault  string
	all    []string
	filter string
	names  []string
}

func NewView(vault string, names []string) *View {
	return &View{Vault: vault, all: names, names: names}
}

// SetFilter narrows the view to names containing text, case-insensitively.
// An empty text restores the full list.
func (v *View) SetFilter(text string) {
	v.filter = strings.TrimSpace(text)
	v.names = filterNames(v.all, v.filter)
}

func (v *View) Filter() string {
	return v.filter
}

func (v *View) Names() []string {
	return v.names
}

func (v *View) Len() int {
	return len(v.names)
}

func (v *View) Total() int {
	return len(v.all)
}

// Index returns the position of name in the filtered list, or -1.
func (v *View) Index(name string) int {
	for i, n := range v.names {
		if n == name {
			return i
		}
	}
	return -1
}

func filterNames(names []string, text string) []string {
	if text == "" {
		return names
	}
	text = strings.ToLower(text)
	filtered := make([]string, 0)
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), text) {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// Cursor is the selected position inside a view.
type Cursor struct {
	view  *View
	index int
}

func (c *Cursor) Name() string {
	return c.view.names[c.index]
}

func (c *Cursor) Index() int {
	return c.index
}

// Next moves forward one entry; it reports false at the last entry.
func (c *Cursor) Next() bool {
	if c.index >= c.view.Len()-1 {
		return false
	}
	c.index++
	return true
}

// Prev moves back one entry; it reports false at the first entry.
func (c *Cursor) Prev() bool {
	if c.index <= 0 {
		return false
	}
	c.index--
	return true
}
