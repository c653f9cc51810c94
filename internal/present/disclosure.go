package present

// Disclosure maps pair indices to "answer visible". Missing keys are hidden.
type Disclosure struct {
	visible map[int]bool
}

// Toggle flips index i and returns its new visibility.
func (d *Disclosure) Toggle(i int) bool {
	if d.visible == nil {
		d.visible = make(map[int]bool)
	}
	d.visible[i] = !d.visible[i]
	return d.visible[i]
}

// Visible reports whether the answer at index i is shown.
func (d *Disclosure) Visible(i int) bool {
	return d.visible[i]
}

// Len returns the number of revealed answers.
func (d *Disclosure) Len() int {
	n := 0
	for _, v := range d.visible {
		if v {
			n++
		}
	}
	return n
}
