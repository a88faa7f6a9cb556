package firewatch

import "github.com/0xmhha/firewatch/pkg/notifier"

// watchTable maps a directory watch to the files registered under it.
// Callers hold Service.mu.
type watchTable struct {
	lists map[notifier.WatchID][]FileWatch
	files int
}

func newWatchTable() *watchTable {
	return &watchTable{lists: make(map[notifier.WatchID][]FileWatch)}
}

func (t *watchTable) add(id notifier.WatchID, fw FileWatch) {
	t.lists[id] = append(t.lists[id], fw)
	t.files++
}

// match appends to dst every file under id whose basename is name, in
// registration order.
func (t *watchTable) match(dst []FileWatch, id notifier.WatchID, name string) []FileWatch {
	for _, fw := range t.lists[id] {
		if fw.Basename() == name {
			dst = append(dst, fw)
		}
	}
	return dst
}

func (t *watchTable) has(id notifier.WatchID) bool {
	_, ok := t.lists[id]
	return ok
}

func (t *watchTable) len() int { return t.files }

func (t *watchTable) dirs() int { return len(t.lists) }
