package impl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/relaunch/domain/entity"
)

func TestSurfaceRegistry_RegisterOrder(t *testing.T) {
	registry := NewSurfaceRegistry()
	a := NewNotificationSurface("a", "")
	b := NewProgressSurface("b")
	c := NewNotificationSurface("c", "")

	registry.Register(a)
	unregisterB := registry.Register(b)
	registry.Register(c)

	require.Len(t, registry.TopLevel(), 3)
	assert.Equal(t, "a", registry.TopLevel()[0].Title())

	unregisterB()
	unregisterB()

	top := registry.TopLevel()
	require.Len(t, top, 2)
	assert.Equal(t, a.SurfaceID(), top[0].SurfaceID())
	assert.Equal(t, c.SurfaceID(), top[1].SurfaceID())
}

func TestSurfaceRegistry_SameSurfaceTwice(t *testing.T) {
	registry := NewSurfaceRegistry()
	s := NewNotificationSurface("x", "")

	first := registry.Register(s)
	registry.Register(s)
	first()

	assert.Len(t, registry.TopLevel(), 1)
}

func TestProgressSurface(t *testing.T) {
	p := NewProgressSurface("Hold restarts")
	assert.True(t, p.SafeToInterrupt().IsSafe())

	p.Start()
	assert.True(t, p.Running())
	assert.Equal(t, entity.Unsafe("Hold restarts is in progress"), p.SafeToInterrupt())

	child := NewNotificationSurface("child", "msg")
	p.Attach(child)
	assert.Len(t, p.Children(), 1)
	assert.Equal(t, "msg", child.Message())

	p.Finish()
	assert.True(t, p.SafeToInterrupt().IsSafe())
	assert.NotEqual(t, p.SurfaceID(), child.SurfaceID())
}

func TestRestartPromptSurface(t *testing.T) {
	latch := newOutcomeLatch()
	s := newRestartPromptSurface(mustRequest(t, "2.1.0"), latch)

	assert.Equal(t, "Restart to 2.1.0", s.Title())
	assert.Equal(t, "a restart prompt for 2.1.0 is waiting for an answer", s.SafeToInterrupt().Reason())

	latch.Finish(entity.DialogOutcomeAccept)
	assert.True(t, s.SafeToInterrupt().IsSafe())
}
