// Package confirm surfaces create-then-adjust prompts to the operator.
package confirm

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-agent/internal/application/ports"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

var _ ports.Confirmer = (*Notifier)(nil)

// Notifier logs each prompt and fans it out to subscribers. Answers come
// back through POST /api/confirmations/:id.
type Notifier struct {
	log zerolog.Logger

	mu   sync.Mutex
	subs map[int]chan entity.Confirmation
	next int
}

// NewNotifier builds a notifier with no subscribers.
func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{
		log:  log.With().Str("component", "confirm").Logger(),
		subs: make(map[int]chan entity.Confirmation),
	}
}

// RequestConfirmation never blocks: a subscriber whose buffer is full misses
// the prompt, which stays listed in the pending view.
func (n *Notifier) RequestConfirmation(c entity.Confirmation) {
	n.log.Info().
		Str("confirmation_id", c.ID).
		Int64("company_id", c.CompanyID).
		Str("barcode", c.Barcode).
		Str("source", string(c.Source)).
		Msg(c.Prompt())

	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		select {
		case ch <- c:
		default:
			n.log.Warn().Int("subscriber", id).Str("confirmation_id", c.ID).Msg("subscriber slow, prompt dropped")
		}
	}
}

// Subscribe returns a channel of prompts and a cancel func that closes it.
func (n *Notifier) Subscribe(buffer int) (<-chan entity.Confirmation, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan entity.Confirmation, buffer)

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}
