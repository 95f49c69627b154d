package brec

// ctxMode distinguishes the two session directions. FormID resolution is
// only defined relative to a concrete file's master table, so every load
// or dump operation owns exactly one Context for its duration.
type ctxMode uint8

const (
	ctxLoad ctxMode = iota + 1
	ctxDump
)

// Context is the per-session state threaded through Load, Dump and Remap.
// A load context fixes the master table used to widen short form ids; a
// dump context fixes the output file's master table used to narrow long
// form ids back to packed integers.
//
// Contexts are immutable after construction and scoped to one operation.
// They must not be shared between concurrently running sessions.
type Context struct {
	mode    ctxMode
	masters []string       // augmented: the file's own name is the last entry
	index   map[string]int // master name -> position, dump direction
	isSave  bool
	header  string // master owning the zero form id
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// AsSave marks the session as operating on a save file rather than a
// plugin. SaveDecider branches on this.
func AsSave() ContextOption {
	return func(c *Context) {
		c.isSave = true
	}
}

// WithHeaderMaster sets the file that owns the zero form id. Defaults to
// the first master.
func WithHeaderMaster(name string) ContextOption {
	return func(c *Context) {
		c.header = name
	}
}

// NewLoadContext creates a session for loading one file. The master list
// must be augmented: the loading file's own name comes last, after its
// masters in file order. Mod indices past the end of the table clamp to
// the file itself, matching how the engine treats references to missing
// masters.
func NewLoadContext(masters []string, opts ...ContextOption) *Context {
	c := newContext(ctxLoad, masters, opts)
	return c
}

// NewDumpContext creates a session for serializing one output file, whose
// eventual master list (again augmented with the file itself) is given.
func NewDumpContext(masters []string, opts ...ContextOption) *Context {
	return newContext(ctxDump, masters, opts)
}

func newContext(mode ctxMode, masters []string, opts []ContextOption) *Context {
	c := &Context{
		mode:    mode,
		masters: append([]string(nil), masters...),
		index:   make(map[string]int, len(masters)),
	}
	for i, m := range masters {
		c.index[m] = i
	}
	if len(masters) > 0 {
		c.header = masters[0]
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsSave reports whether the session's file is a save.
func (c *Context) IsSave() bool {
	return c != nil && c.isSave
}

// Masters returns the session's augmented master table.
func (c *Context) Masters() []string {
	if c == nil {
		return nil
	}
	return c.masters
}

func (c *Context) isLoad() bool { return c != nil && c.mode == ctxLoad }
func (c *Context) isDump() bool { return c != nil && c.mode == ctxDump }
