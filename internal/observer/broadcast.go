package observer

import "github.com/runzeroinc/netkit-capture/internal/model"

// Broadcast fans a single delivery out to every registered observer in
// order, isolating one observer's panic from the others and from the
// controller's own goroutine — an observer's bug must not take down a
// capture session.
type Broadcast struct {
	observers []Observer
}

func NewBroadcast(observers ...Observer) *Broadcast {
	return &Broadcast{observers: observers}
}

func (b *Broadcast) Add(o Observer) {
	b.observers = append(b.observers, o)
}

func (b *Broadcast) OnPackets(batch []model.PacketRecord) {
	for _, o := range b.observers {
		safeCall(func() { o.OnPackets(batch) })
	}
}

func (b *Broadcast) OnStatus(state State) {
	for _, o := range b.observers {
		safeCall(func() { o.OnStatus(state) })
	}
}

func (b *Broadcast) OnStats(stats model.CaptureStats) {
	for _, o := range b.observers {
		safeCall(func() { o.OnStats(stats) })
	}
}

func (b *Broadcast) OnError(kind ErrorKind, message string) {
	for _, o := range b.observers {
		safeCall(func() { o.OnError(kind, message) })
	}
}

func (b *Broadcast) OnSamplingActive() {
	for _, o := range b.observers {
		safeCall(o.OnSamplingActive)
	}
}

func (b *Broadcast) OnBackpressure() {
	for _, o := range b.observers {
		safeCall(o.OnBackpressure)
	}
}

func safeCall(f func()) {
	defer func() { recover() }()
	f()
}
