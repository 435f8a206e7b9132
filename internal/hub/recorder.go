package hub

import "sync"

// Recorder captures events addressed to users instead of delivering them. It
// satisfies the pusher interfaces used by the services.
type Recorder struct {
	mu     sync.Mutex
	online map[uint]bool
	Sent   []Sent
}

type Sent struct {
	UserID uint
	Event  Event
}

func NewRecorder(online ...uint) *Recorder {
	r := &Recorder{online: make(map[uint]bool)}
	for _, id := range online {
		r.online[id] = true
	}
	return r
}

func (r *Recorder) SendToUser(userID uint, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, Sent{UserID: userID, Event: event})
}

func (r *Recorder) IsOnline(userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[userID]
}

// To returns the event types sent to userID, in order.
func (r *Recorder) To(userID uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for _, s := range r.Sent {
		if s.UserID == userID {
			types = append(types, s.Event.Type)
		}
	}
	return types
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = nil
}
