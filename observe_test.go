package goprojection_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	gp "github.com/reoring/goprojection"
)

type observation struct {
	kind string
	err  error
}

type recordingObserver struct {
	seen []observation
}

func (o *recordingObserver) ObserveRender(kind string, _ time.Duration, err error) {
	o.seen = append(o.seen, observation{kind: kind, err: err})
}

func TestRenderer_ObservesAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := &recordingObserver{}
	r := gp.NewRenderer(gp.WithLogger(zap.New(core)), gp.WithObserver(obs))
	reg := gp.NewStructRegistry()
	src, err := gp.SerializerOf[post](reg)
	require.NoError(t, err)

	b := gp.Build[post]()
	doc, err := r.Render(b.Include(titleField()).Exclude(idField()), src, reg)
	require.NoError(t, err)
	assert.Equal(t, `{"title":1,"_id":0}`, doc.String())

	_, err = r.Render(b.ElemMatch(titleField(), nil), src, reg)
	require.Error(t, err)

	require.Len(t, obs.seen, 2)
	assert.Equal(t, "combined", obs.seen[0].kind)
	assert.NoError(t, obs.seen[0].err)
	assert.Equal(t, "elem_match", obs.seen[1].kind)
	assert.True(t, gp.HasCode(obs.seen[1].err, gp.CodeInvalidProjectionTarget))

	ok := logs.FilterMessage("projection rendered").All()
	require.Len(t, ok, 1)
	assert.Equal(t, zapcore.DebugLevel, ok[0].Level)
	assert.Equal(t, "combined", ok[0].ContextMap()["kind"])

	failed := logs.FilterMessage("projection render failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, gp.CodeInvalidProjectionTarget, failed[0].ContextMap()["code"])
}

func TestRenderer_ZeroValue(t *testing.T) {
	var r gp.Renderer
	reg := gp.NewStructRegistry()
	src, err := gp.SerializerOf[post](reg)
	require.NoError(t, err)
	doc, err := r.Render(gp.Build[post]().MetaTextScore("s"), src, reg)
	require.NoError(t, err)
	assert.Equal(t, `{"s":{"$meta":"textScore"}}`, doc.String())
}
