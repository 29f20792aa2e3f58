package track

import "github.com/your-org/vmask/internal/mask"

// DefaultIoUThreshold is the drift threshold below which a new box
// segment is opened.
const DefaultIoUThreshold = 0.25

// Entry is one recorded box, keyed by the frame that starts its segment.
type Entry struct {
	Frame int
	Box   Box
}

// History is the sparse per-object box history. Entries are kept sorted
// by segment-start frame; the box recorded at key k is held constant for
// every frame in [k, next key).
type History struct {
	entries []Entry
}

// Append records a new segment start. Frames must arrive in strictly
// ascending order.
func (h *History) Append(frame int, b Box) {
	h.entries = append(h.entries, Entry{Frame: frame, Box: b})
}

// Floor returns the box of the segment containing frame: the entry with
// the largest key <= frame. ok is false when frame precedes every entry.
func (h *History) Floor(frame int) (Box, bool) {
	var b Box
	found := false
	for _, e := range h.entries {
		if e.Frame > frame {
			break
		}
		b = e.Box
		found = true
	}
	return b, found
}

// Entries returns the recorded segments in ascending frame order.
func (h *History) Entries() []Entry {
	return h.entries
}

// Len returns the number of recorded segments.
func (h *History) Len() int {
	return len(h.entries)
}

// Segment is a resolved half-open frame range with its box.
type Segment struct {
	Start int
	End   int // exclusive
	Box   Box
}

// Segments partitions [first key, frameCount) into the half-open ranges
// during which each recorded box is held.
func (h *History) Segments(frameCount int) []Segment {
	segs := make([]Segment, 0, len(h.entries))
	for i, e := range h.entries {
		end := frameCount
		if i+1 < len(h.entries) {
			end = h.entries[i+1].Frame
		}
		segs = append(segs, Segment{Start: e.Frame, End: end, Box: e.Box})
	}
	return segs
}

// Map applies fn to every recorded box, returning a new history with the
// same keys. Used to derive the refined history from the coalesced one.
func (h *History) Map(fn func(Box) Box) *History {
	out := &History{entries: make([]Entry, len(h.entries))}
	for i, e := range h.entries {
		out.entries[i] = Entry{Frame: e.Frame, Box: fn(e.Box)}
	}
	return out
}

// Coalesce builds one sparse box history per object from the per-frame
// masks. For every frame the tight box of the object's mask is compared
// against the running active box (the union of all tight boxes observed
// since the current segment started). When IoU drops below threshold a
// new segment is recorded and the active box resets; otherwise only the
// active box grows. Recorded history entries are never rewritten.
// Objects that never appear have no history entry in the result.
func Coalesce(store *mask.Store, threshold float64) map[int]*History {
	histories := make(map[int]*History)
	active := make(map[int]Box)

	for frame := 0; frame < store.FrameCount(); frame++ {
		for objectID := 1; objectID <= store.ObjectCount(); objectID++ {
			raw, ok := TightBox(store.At(frame, objectID))
			if !ok {
				continue
			}

			cur, seen := active[objectID]
			if !seen {
				// The first segment is keyed at frame 0 even when the
				// object appears later, so floor lookups are total for
				// every frame of the video.
				h := &History{}
				h.Append(0, raw)
				histories[objectID] = h
				active[objectID] = raw
				continue
			}

			if IoU(cur, raw) < threshold {
				histories[objectID].Append(frame, raw)
				active[objectID] = raw
			} else {
				active[objectID] = Box{
					min(cur[0], raw[0]),
					min(cur[1], raw[1]),
					max(cur[2], raw[2]),
					max(cur[3], raw[3]),
				}
			}
		}
	}

	return histories
}
