package engine

import "sync"

// Draft is the text typed in a comment or reply input. The engine clears it
// as soon as the tentative entry is shown.
type Draft struct {
	mu   sync.Mutex
	text string
}

// NewDraft returns a draft holding text.
func NewDraft(text string) *Draft {
	return &Draft{text: text}
}

// Set replaces the draft text.
func (d *Draft) Set(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
}

// Text returns the current text.
func (d *Draft) Text() string {
	if d == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Clear empties the draft.
func (d *Draft) Clear() {
	if d == nil {
		return
	}
	d.Set("")
}
