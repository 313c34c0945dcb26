package reconcile

import (
	"time"

	e "nuclight.org/offers-archiver/pkg/entities"
)

// Presence lists the offers a user has written in, in the order they were
// first seen.
type Presence struct {
	UserID e.UserID
	Offers []int64
}

// Index joins the offers and messages documents in memory. It is built once
// and read-only afterwards, so it is safe for concurrent readers.
type Index struct {
	offers   []e.Offer
	offerPos map[int64]int
	messages map[int64][]e.Message
	presence []Presence
	me       e.UserID
	skipped  int
	loc      *time.Location
}

// New builds the index. Threads without an offer id or without a messages
// array are skipped. When several threads share an offer id the last one
// wins. loc is the zone messages are grouped by, time.Local when nil.
func New(offers []e.Offer, threads []e.Thread, loc *time.Location) *Index {
	if loc == nil {
		loc = time.Local
	}

	idx := &Index{
		offers:   offers,
		offerPos: make(map[int64]int, len(offers)),
		messages: make(map[int64][]e.Message, len(threads)),
		loc:      loc,
	}

	for i, offer := range offers {
		if _, ok := idx.offerPos[offer.ID]; !ok {
			idx.offerPos[offer.ID] = i
		}
	}

	for _, thread := range threads {
		if thread.OfferID == 0 || thread.Messages == nil {
			idx.skipped++
			continue
		}
		idx.messages[thread.OfferID] = thread.Messages
	}

	idx.presence = buildPresence(threads)
	idx.me = inferMe(idx.presence)

	return idx
}

// buildPresence maps every sender to the set of offers they wrote in,
// iterating threads in document order and messages in stored order.
func buildPresence(threads []e.Thread) []Presence {
	var presence []Presence
	pos := make(map[e.UserID]int)
	offerSets := make(map[e.UserID]map[int64]struct{})

	for _, thread := range threads {
		if thread.OfferID == 0 || thread.Messages == nil {
			continue
		}

		for _, msg := range thread.Messages {
			id := msg.SenderID()
			if id == "" {
				continue
			}

			i, ok := pos[id]
			if !ok {
				i = len(presence)
				pos[id] = i
				presence = append(presence, Presence{UserID: id})
				offerSets[id] = make(map[int64]struct{})
			}

			if _, ok = offerSets[id][thread.OfferID]; ok {
				continue
			}
			offerSets[id][thread.OfferID] = struct{}{}
			presence[i].Offers = append(presence[i].Offers, thread.OfferID)
		}
	}

	return presence
}

// inferMe picks the first user, in first-seen order, present in more than
// one offer. Nobody is picked when no user crosses threads.
func inferMe(presence []Presence) e.UserID {
	for _, p := range presence {
		if len(p.Offers) > 1 {
			return p.UserID
		}
	}
	return ""
}

// Me returns the inferred account owner and whether one was found.
func (idx *Index) Me() (e.UserID, bool) {
	return idx.me, idx.me != ""
}

// Presence returns the user to offers map in first-seen order.
func (idx *Index) Presence() []Presence {
	return idx.presence
}

// SkippedThreads counts the threads New ignored.
func (idx *Index) SkippedThreads() int {
	return idx.skipped
}

func (idx *Index) Offers() []e.Offer {
	return idx.offers
}

func (idx *Index) Offer(id int64) (e.Offer, bool) {
	i, ok := idx.offerPos[id]
	if !ok {
		return e.Offer{}, false
	}
	return idx.offers[i], true
}

// Messages returns the stored messages of an offer, malformed ones included.
func (idx *Index) Messages(offerID int64) []e.Message {
	return idx.messages[offerID]
}

// DirectionOf tags a sender relative to the inferred owner.
func (idx *Index) DirectionOf(id e.UserID) e.Direction {
	if idx.me != "" && id == idx.me {
		return e.DirectionSent
	}
	return e.DirectionReceived
}
