package realtime

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/auth"
)

type captureSink struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (c *captureSink) Send(event string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestPublishVisibility(t *testing.T) {
	b := NewBroker(zap.NewNop())
	defer b.Close()

	owner := &captureSink{}
	other := &captureSink{}
	branch := &captureSink{}
	b.Subscribe("pac-1", auth.RolePAC, owner)
	b.Subscribe("pac-2", auth.RolePAC, other)
	b.Subscribe("cabang-1", auth.RoleCabang, branch)

	b.PublishEntityChange("pengajuan_pac", "create", map[string]string{"id": "x"}, "pac-1")

	if owner.count() != 1 {
		t.Errorf("owner received %d events, want 1", owner.count())
	}
	if other.count() != 0 {
		t.Errorf("unrelated subscriber received %d events, want 0", other.count())
	}
	if branch.count() != 1 {
		t.Errorf("branch subscriber received %d events, want 1", branch.count())
	}
}

func TestPublishNoOwnerOnlyBranch(t *testing.T) {
	b := NewBroker(zap.NewNop())
	defer b.Close()

	pac := &captureSink{}
	branch := &captureSink{}
	b.Subscribe("pac-1", auth.RolePAC, pac)
	b.Subscribe("cabang-1", auth.RoleCabang, branch)

	b.Publish(EventLogActivity, map[string]string{"action": "boot"}, "")

	if pac.count() != 0 {
		t.Errorf("pac received %d events for ownerless publish, want 0", pac.count())
	}
	if branch.count() != 1 {
		t.Errorf("branch received %d events, want 1", branch.count())
	}
}

func TestFailingSinkIsDropped(t *testing.T) {
	b := NewBroker(zap.NewNop())
	defer b.Close()

	bad := &captureSink{fail: true}
	good := &captureSink{}
	b.Subscribe("cabang-1", auth.RoleCabang, bad)
	b.Subscribe("cabang-2", auth.RoleCabang, good)

	b.PublishEntityChange("periode", "update", nil, "pac-1")

	if b.Len() != 1 {
		t.Fatalf("subscribers = %d, want failing sink removed", b.Len())
	}
	if good.count() != 1 {
		t.Fatalf("healthy sink received %d events, want 1", good.count())
	}

	// Later publishes only reach the survivor.
	b.PublishEntityChange("periode", "update", nil, "pac-1")
	if good.count() != 2 {
		t.Fatalf("healthy sink received %d events, want 2", good.count())
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	b := NewBroker(zap.NewNop())
	defer b.Close()

	id := b.Subscribe("pac-1", auth.RolePAC, &captureSink{})
	b.Unsubscribe(id)
	b.Unsubscribe(id)
	if b.Len() != 0 {
		t.Fatalf("subscribers = %d, want 0", b.Len())
	}
}

func TestHeartbeatReachesEveryone(t *testing.T) {
	b := NewBroker(zap.NewNop())
	defer b.Close()

	pac := &captureSink{}
	branch := &captureSink{}
	b.Subscribe("pac-1", auth.RolePAC, pac)
	b.Subscribe("cabang-1", auth.RoleCabang, branch)

	b.heartbeat()

	if pac.count() != 1 || branch.count() != 1 {
		t.Fatalf("heartbeat reached pac=%d branch=%d, want 1/1", pac.count(), branch.count())
	}
}

func TestCloseDropsSubscribers(t *testing.T) {
	b := NewBroker(zap.NewNop())
	b.Subscribe("pac-1", auth.RolePAC, &captureSink{})
	b.Subscribe("cabang-1", auth.RoleCabang, &captureSink{})
	b.Close()
	if b.Len() != 0 {
		t.Fatalf("subscribers = %d after close, want 0", b.Len())
	}
}
