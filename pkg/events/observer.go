package events

import (
	"github.com/tecu23/csa-client/pkg/game"
	"github.com/tecu23/csa-client/pkg/record"
)

// Snapshotter provides the record attached to save requests
type Snapshotter interface {
	Snapshot() record.Snapshot
}

// StatePayload is published with EventStateChanged
type StatePayload struct {
	State string `json:"state"`
}

// GameObserver turns session manager notifications into published events
type GameObserver struct {
	publisher *Publisher
	record    Snapshotter
}

var _ game.Observer = (*GameObserver)(nil)

// NewGameObserver creates an observer publishing to p. Save requests carry a
// snapshot of rec.
func NewGameObserver(p *Publisher, rec Snapshotter) *GameObserver {
	return &GameObserver{publisher: p, record: rec}
}

func (o *GameObserver) publish(t EventType, payload interface{}) {
	o.publisher.Publish(Event{Type: t, Payload: payload})
}

// OnStateChanged publishes the new manager state.
func (o *GameObserver) OnStateChanged(state game.State) {
	o.publish(EventStateChanged, StatePayload{State: state.String()})
}

// OnSaveRecord publishes a snapshot of the record.
func (o *GameObserver) OnSaveRecord() {
	o.publish(EventSaveRecord, o.record.Snapshot())
}

func (o *GameObserver) OnGameNext()        { o.publish(EventGameNext, nil) }
func (o *GameObserver) OnGameEnd()         { o.publish(EventGameEnd, nil) }
func (o *GameObserver) OnFlipBoard(f bool) { o.publish(EventFlipBoard, f) }
func (o *GameObserver) OnPieceBeat()       { o.publish(EventPieceBeat, nil) }
func (o *GameObserver) OnBeepShort()       { o.publish(EventBeepShort, nil) }
func (o *GameObserver) OnBeepUnlimited()   { o.publish(EventBeepUnlimited, nil) }
func (o *GameObserver) OnStopBeep()        { o.publish(EventStopBeep, nil) }

// OnError publishes a session error.
func (o *GameObserver) OnError(err error) {
	o.publish(EventError, err)
}
