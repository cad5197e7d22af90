package paging

// Window is the renderable subset of the collection.
type Window[T any] struct {
	Items []T
	Start int  // slot index of Items[0]
	Empty bool // nothing to render; the caller shows a "no data" row
}

// Window derives what to render from the collection and mode. It never
// mutates the collection and never yields placeholders or repeated
// identities.
func (e *Engine[T]) Window() Window[T] {
	var from, to int
	switch e.mode {
	case ModePage:
		from = (e.cur.Page - 1) * e.cfg.PageSize
		to = from + e.cfg.PageSize
	default:
		to = e.cur.Visible
	}
	if to > e.coll.Len() {
		to = e.coll.Len()
	}

	w := Window[T]{Start: from}
	seen := make(map[string]struct{})
	for i := from; i < to; i++ {
		item, ok := e.coll.At(i)
		if !ok {
			if e.mode == ModeScroll {
				break
			}
			continue
		}
		id := e.identity(item)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		w.Items = append(w.Items, item)
	}
	w.Empty = len(w.Items) == 0
	return w
}
