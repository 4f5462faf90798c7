package snapshot

import "github.com/keyframeio/rollback/ring"

// Ring is the bounded, ascending-frame ring of saved simulation states.
// Capacity is max_prediction_frames+2 (§4.2): enough room for every frame
// currently allowed to run ahead of confirmation, plus the confirmed frame
// itself and one spare.
type Ring[S any] struct {
	capacity int
	entries  *ring.Buffer[SavedFrame[S]]
}

// NewRing returns an empty ring with the given capacity.
func NewRing[S any](capacity int) *Ring[S] {
	return &Ring[S]{
		capacity: capacity,
		entries:  ring.New[SavedFrame[S]](capacity),
	}
}

// Save records a snapshot handle for frame. Saving the same frame twice
// replaces the prior entry (idempotent). When the ring is full, the oldest
// entry is evicted to make room.
func (r *Ring[S]) Save(frame uint32, state S) SavedFrame[S] {
	for i := 0; i < r.entries.Len(); i++ {
		if r.entries.At(i).Frame == frame {
			sf := SavedFrame[S]{Frame: frame, State: state}
			r.entries.Set(i, sf)
			return sf
		}
	}

	sf := SavedFrame[S]{Frame: frame, State: state}
	r.entries.PushBack(sf)
	if r.entries.Len() > r.capacity {
		r.entries.TruncFront(r.entries.Len() - r.capacity)
	}
	return sf
}

// Load seeks the ring to target: the entry for target must be present, and
// on success every other entry is discarded — entries older than target
// are no longer needed, and entries newer than target describe simulation
// states that are about to be invalidated by the replay.
func (r *Ring[S]) Load(target uint32) (SavedFrame[S], error) {
	for i := 0; i < r.entries.Len(); i++ {
		if entry := r.entries.At(i); entry.Frame == target {
			r.entries.Reset()
			r.entries.PushBack(entry)
			return entry, nil
		}
	}
	return SavedFrame[S]{}, NotFound(target)
}

// Len reports how many saved states are currently retained.
func (r *Ring[S]) Len() int {
	return r.entries.Len()
}
