package pagination

// Pager is the page selector a Controller drives. *collection.Store
// implements it; SetPage starts the store's fetch cycle.
type Pager interface {
	Page() int
	SetPage(p int) bool
}

// Controller validates page moves. Pages start at 1 and have no upper bound:
// a page past the end simply loads empty.
type Controller struct {
	pager Pager
}

func NewController(p Pager) *Controller {
	return &Controller{pager: p}
}

// GoTo moves to page and reports whether it was accepted. Pages below 1 are a no-op.
func (c *Controller) GoTo(page int) bool {
	if page < 1 {
		return false
	}
	return c.pager.SetPage(page)
}

func (c *Controller) Next() bool { return c.GoTo(c.pager.Page() + 1) }

func (c *Controller) Previous() bool { return c.GoTo(c.pager.Page() - 1) }

func (c *Controller) Current() int { return c.pager.Page() }
