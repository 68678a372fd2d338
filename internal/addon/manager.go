package addon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/you/soopcast/internal/core"
)

// Manager routes each finalized DomainEvent to every registered addon,
// sequentially, in registration order. Registration changes during a
// dispatch never affect that dispatch: the registry is snapshotted under
// the lock before iterating.
type Manager struct {
	mu     sync.Mutex
	addons []Addon
}

func NewManager() *Manager {
	return &Manager{}
}

// Register adds an addon under its Name. Registering a name already present
// replaces the previous addon in place, keeping its slot in the order.
func (m *Manager) Register(a Addon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.addons {
		if existing.Name() == a.Name() {
			m.addons[i] = a
			slog.Info("addon replaced", "name", a.Name())
			return
		}
	}
	m.addons = append(m.addons, a)
	slog.Info("addon registered", "name", a.Name())
}

// Unregister removes the addon registered under name, if any.
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.addons {
		if existing.Name() == name {
			m.addons = append(m.addons[:i], m.addons[i+1:]...)
			slog.Info("addon unregistered", "name", name)
			return
		}
	}
}

// Count reports how many addons are registered.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.addons)
}

func (m *Manager) snapshot() []Addon {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Addon, len(m.addons))
	copy(out, m.addons)
	return out
}

// Dispatch invokes the handler matching ev's variant on every addon.
// A handler that fails internally must log and return on its own; the
// manager neither catches nor retries, and never skips the remaining
// addons because an earlier one misbehaved short of panicking.
func (m *Manager) Dispatch(ctx context.Context, actx *Context, ev core.DomainEvent) {
	for _, a := range m.snapshot() {
		switch ev.Kind {
		case core.KindConnected:
			a.OnConnected(ctx, actx)
		case core.KindDisconnected:
			a.OnDisconnected(ctx, actx)
		case core.KindHostStateChange:
			a.OnHostStateChange(ctx, actx)
		case core.KindChat:
			a.OnChat(ctx, actx, ev.Chat)
		case core.KindDonation:
			a.OnDonation(ctx, actx, ev.Donation)
		case core.KindSubscribe:
			a.OnSubscribe(ctx, actx, ev.Subscribe)
		case core.KindKickCancel:
			a.OnKickCancel(ctx, actx, ev.KickCancel)
		case core.KindMute:
			a.OnMute(ctx, actx, ev.Mute)
		case core.KindBlack:
			a.OnBlack(ctx, actx, ev.Black)
		case core.KindFreeze:
			a.OnFreeze(ctx, actx, ev.Freeze)
		case core.KindNotification:
			a.OnNotification(ctx, actx, ev.Notification)
		case core.KindMissionDonation:
			a.OnMissionDonation(ctx, actx, ev.MissionDonation)
		case core.KindMissionTotal:
			a.OnMissionTotal(ctx, actx, ev.MissionTotal)
		case core.KindBattleMissionResult:
			a.OnBattleMissionResult(ctx, actx, ev.BattleMissionResult)
		case core.KindChallengeMissionResult:
			a.OnChallengeMissionResult(ctx, actx, ev.ChallengeMissionResult)
		case core.KindSlow:
			a.OnSlow(ctx, actx, ev.Slow)
		case core.KindMetadataUpdate:
			a.OnMetadataUpdate(ctx, actx, ev.Metadata)
		}
	}
}

// StopAll calls Stop on every addon in registration order. Invoked once
// during shutdown, after the last Dispatch.
func (m *Manager) StopAll(ctx context.Context, actx *Context) {
	for _, a := range m.snapshot() {
		a.Stop(ctx, actx)
	}
}
