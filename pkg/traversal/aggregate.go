package traversal

import (
	"fmt"

	"github.com/helixdb/helix-go/pkg/storage"
)

// GroupBy buckets elements by the tuple of named properties, collecting
// each bucket's members (spec.md §4.2 "GroupBy(properties…)"). The result
// is a stream of one KindAggregate element per bucket, in order of first
// appearance, each carrying its bucket in Group.
func (t *Traversal) GroupBy(properties ...string) *Traversal {
	return t.groupBy(properties, true)
}

// AggregateBy is GroupBy without retaining members, yielding only each
// bucket's key and count (spec.md §4.2 "AggregateBy(properties…) — counts
// only, no member retention").
func (t *Traversal) AggregateBy(properties ...string) *Traversal {
	return t.groupBy(properties, false)
}

func (t *Traversal) groupBy(properties []string, keepMembers bool) *Traversal {
	if t.err != nil {
		return t
	}
	items, err := t.Collect()
	if err != nil {
		return fail(err)
	}

	type bucket struct {
		key     []storage.Value
		members []Element
		count   int64
	}
	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	for _, e := range items {
		key := make([]storage.Value, len(properties))
		sig := ""
		for i, p := range properties {
			v, _ := e.Property(p)
			key[i] = v
			if n, ok := numeric(v); ok {
				sig += fmt.Sprintf("%d:%v\x00", v.Kind, n)
			} else {
				sig += fmt.Sprintf("%d:%s\x00", v.Kind, v.Str)
			}
		}
		b, ok := buckets[sig]
		if !ok {
			b = &bucket{key: key}
			buckets[sig] = b
			order = append(order, sig)
		}
		b.count++
		if keepMembers {
			b.members = append(b.members, e)
		}
	}

	out := make([]Element, 0, len(order))
	for _, sig := range order {
		b := buckets[sig]
		out = append(out, Element{
			Kind:  KindAggregate,
			Group: &Group{Key: b.key, Members: b.members, Count: b.count},
		})
	}
	return newTraversal(fromSlice(out))
}
