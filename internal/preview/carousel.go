package preview

// Carousel is the fullscreen preview position. Navigation is bounded to
// [0, count-1] and never wraps.
type Carousel struct {
	index int
	count int
	open  bool
}

// OpenCarousel opens the carousel at start, clamped into range.
func OpenCarousel(count, start int) *Carousel {
	c := &Carousel{count: count, open: true}
	c.index = c.clamp(start)
	return c
}

func (c *Carousel) Index() int   { return c.index }
func (c *Carousel) Count() int   { return c.count }
func (c *Carousel) IsOpen() bool { return c.open }

func (c *Carousel) HasPrev() bool { return c.open && c.index > 0 }
func (c *Carousel) HasNext() bool { return c.open && c.index < c.count-1 }

// Prev moves one slide back; at the first slide it stays put.
func (c *Carousel) Prev() int {
	if c.HasPrev() {
		c.index--
	}
	return c.index
}

// Next moves one slide forward; at the last slide it stays put.
func (c *Carousel) Next() int {
	if c.HasNext() {
		c.index++
	}
	return c.index
}

func (c *Carousel) Close() { c.open = false }

func (c *Carousel) clamp(i int) int {
	if c.count == 0 || i < 0 {
		return 0
	}
	if i > c.count-1 {
		return c.count - 1
	}
	return i
}
