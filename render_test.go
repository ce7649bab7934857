package goprojection_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gp "github.com/reoring/goprojection"
	"github.com/reoring/goprojection/filter"
)

func renderPost(t *testing.T, p gp.Projection[post]) (gp.Document, error) {
	t.Helper()
	return gp.RenderFor(p, gp.NewStructRegistry())
}

func mustRender(t *testing.T, p gp.Projection[post]) gp.Document {
	t.Helper()
	doc, err := renderPost(t, p)
	require.NoError(t, err)
	return doc
}

func TestRender_Leaves(t *testing.T) {
	b := gp.Build[post]()
	tests := []struct {
		name string
		p    gp.Projection[post]
		want string
	}{
		{name: "include", p: b.Include(titleField()), want: `{"title":1}`},
		{name: "exclude", p: b.Exclude(idField()), want: `{"_id":0}`},
		{name: "include_nested", p: b.Include(cityField()), want: `{"addr.city":1}`},
		{name: "meta_text_score", p: b.MetaTextScore("score"), want: `{"score":{"$meta":"textScore"}}`},
		{name: "slice_skip", p: b.Slice(gp.Path[post]("tags"), 5), want: `{"tags":{"$slice":5}}`},
		{name: "slice_negative", p: b.Slice(gp.Path[post]("tags"), -3), want: `{"tags":{"$slice":-3}}`},
		{name: "slice_skip_limit", p: b.SliceLimit(gp.Path[post]("tags"), 10, 5), want: `{"tags":{"$slice":[10,5]}}`},
		{name: "positional", p: b.Positional(commentsField().Field), want: `{"comments.$":1}`},
		{name: "positional_non_array", p: b.Positional(titleField()), want: `{"title.$":1}`},
		{name: "elem_match_nil_filter", p: gp.ElemMatchOf(commentsField(), nil), want: `{"comments":{"$elemMatch":{}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustRender(t, tt.p)
			assert.Equal(t, tt.want, doc.String())
		})
	}
}

func TestRender_SliceValueShapes(t *testing.T) {
	b := gp.Build[post]()
	doc := mustRender(t, b.Slice(gp.Path[post]("tags"), 3))
	inner, ok := doc.Get("tags")
	require.True(t, ok)
	v, _ := inner.(gp.Document).Get("$slice")
	assert.Equal(t, 3, v)

	doc = mustRender(t, b.SliceLimit(gp.Path[post]("tags"), 1, 2))
	inner, _ = doc.Get("tags")
	v, _ = inner.(gp.Document).Get("$slice")
	assert.Equal(t, []any{1, 2}, v)
}

func TestRender_IncludeExcludeIdentity(t *testing.T) {
	b := gp.Build[post]()
	for _, f := range []gp.Field[post]{titleField(), cityField(), gp.Path[post]("a.b.c")} {
		rf, err := f.Resolve(mustSerializer(t), gp.NewStructRegistry())
		require.NoError(t, err)
		assert.Equal(t, gp.Document{{Key: rf.Path, Value: 1}}, mustRender(t, b.Include(f)))
		assert.Equal(t, gp.Document{{Key: rf.Path, Value: 0}}, mustRender(t, b.Exclude(f)))
	}
}

func TestRender_TypedAndStringFieldsAreEquivalent(t *testing.T) {
	b := gp.Build[post]()
	assert.Equal(t,
		mustRender(t, b.Include(gp.Path[post]("addr.city"))),
		mustRender(t, b.Include(cityField())),
	)
	assert.Equal(t,
		mustRender(t, b.SliceLimit(gp.Path[post]("comments"), 0, 2)),
		mustRender(t, b.SliceLimit(commentsField().Field, 0, 2)),
	)
	// pointer sub-documents
	assert.Equal(t,
		mustRender(t, b.Include(gp.Path[post]("owner.city"))),
		mustRender(t, b.Include(ownerCityField())),
	)
	assert.Equal(t, `{"owner.city":0}`, mustRender(t, b.Exclude(ownerCityField())).String())
}

// Run with -race to check the registry caches.
func TestRender_ConcurrentAgainstOneRegistry(t *testing.T) {
	b := gp.Build[post]()
	author := gp.FieldOf(func(c *comment) *string { return &c.Author })
	p := b.Combine(
		b.Include(titleField()),
		b.Include(ownerCityField()),
		gp.ElemMatchOf(commentsField(), filter.Eq(author, "bob")),
		b.SliceLimit(gp.FieldOf(func(p *post) *[]string { return &p.Tags }), 0, 3),
	)
	reg := gp.NewStructRegistry()

	const workers = 16
	docs := make([]gp.Document, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docs[i], errs[i] = gp.RenderFor(p, reg)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, docs[0], docs[i])
	}
	assert.Equal(t,
		`{"title":1,"owner.city":1,"comments":{"$elemMatch":{"author":"bob"}},"tags":{"$slice":[0,3]}}`,
		docs[0].String())
}

func TestCombine_Empty(t *testing.T) {
	b := gp.Build[post]()
	doc := mustRender(t, b.Combine())
	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, "{}", doc.String())
	assert.Equal(t, "combined", b.Combine().Kind())

	var zero gp.Projection[post]
	assert.Equal(t, "{}", mustRender(t, zero).String())
}

func TestCombine_SingleChildIsStillCombined(t *testing.T) {
	b := gp.Build[post]()
	p := b.Combine(b.Include(titleField()))
	assert.Equal(t, "combined", p.Kind())
	assert.Equal(t, `{"title":1}`, mustRender(t, p).String())
}

func TestCombine_LastWriterWinsAndMovesToEnd(t *testing.T) {
	b := gp.Build[post]()

	doc := mustRender(t, b.Combine(b.Include(titleField()), b.Exclude(titleField())))
	assert.Equal(t, gp.Document{{Key: "title", Value: 0}}, doc)

	doc = mustRender(t, b.Combine(
		b.Include(titleField()),
		b.Include(idField()),
		b.Exclude(titleField()),
	))
	assert.Equal(t, []string{"_id", "title"}, doc.Keys())
	v, _ := doc.Get("title")
	assert.Equal(t, 0, v)
}

func TestCombine_Associative(t *testing.T) {
	b := gp.Build[post]()
	x := b.Include(titleField())
	y := b.Slice(gp.Path[post]("tags"), 2)
	z := b.Exclude(titleField())
	w := b.MetaTextScore("score")

	flat := mustRender(t, b.Combine(x, y, z, w))
	left := mustRender(t, b.Combine(b.Combine(x, y), b.Combine(z, w)))
	right := mustRender(t, b.Combine(x, b.Combine(y, b.Combine(z, w))))
	assert.True(t, flat.Equal(left))
	assert.True(t, flat.Equal(right))
	assert.Equal(t, []string{"tags", "title", "score"}, flat.Keys())
}

// Every variant is checked against the move-to-end merge: a later operator on
// the same key replaces the earlier one and takes the last position.
func TestCombine_KeyOrderPerVariant(t *testing.T) {
	b := gp.Build[post]()
	comments := gp.Path[post]("comments")
	tests := []struct {
		name string
		last gp.Projection[post]
		keys []string
	}{
		{name: "include", last: b.Include(comments), keys: []string{"title", "comments"}},
		{name: "exclude", last: b.Exclude(comments), keys: []string{"title", "comments"}},
		{name: "slice", last: b.Slice(comments, 1), keys: []string{"title", "comments"}},
		{name: "slice_limit", last: b.SliceLimit(comments, 1, 2), keys: []string{"title", "comments"}},
		{name: "elem_match", last: gp.ElemMatchOf(commentsField(), nil), keys: []string{"title", "comments"}},
		{name: "meta_text_score", last: b.MetaTextScore("comments"), keys: []string{"title", "comments"}},
		// positional writes "comments.$", a distinct key
		{name: "positional", last: b.Positional(comments), keys: []string{"comments", "title", "comments.$"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustRender(t, b.Combine(b.Include(comments), b.Include(titleField()), tt.last))
			assert.Equal(t, tt.keys, doc.Keys())
		})
	}
}

func TestCombine_CopiesChildren(t *testing.T) {
	b := gp.Build[post]()
	children := []gp.Projection[post]{b.Include(titleField())}
	p := b.Combine(children...)
	children[0] = b.Exclude(idField())
	assert.Equal(t, `{"title":1}`, mustRender(t, p).String())
}

func TestProjection_ChainingMatchesCombine(t *testing.T) {
	b := gp.Build[post]()
	chained := b.Include(titleField()).
		Exclude(idField()).
		MetaTextScore("score").
		Slice(gp.Path[post]("tags"), 1).
		SliceLimit(gp.Path[post]("comments"), 0, 3).
		Positional(gp.Path[post]("meta"))
	chained = gp.AndElemMatch(chained, commentsField(), nil)

	combined := b.Combine(
		b.Include(titleField()),
		b.Exclude(idField()),
		b.MetaTextScore("score"),
		b.Slice(gp.Path[post]("tags"), 1),
		b.SliceLimit(gp.Path[post]("comments"), 0, 3),
		b.Positional(gp.Path[post]("meta")),
		gp.ElemMatchOf(commentsField(), nil),
	)
	assert.Equal(t, mustRender(t, combined), mustRender(t, chained))
	// the later $elemMatch replaces the $slice on comments and moves last
	assert.Equal(t, []string{"title", "_id", "score", "tags", "meta.$", "comments"}, mustRender(t, chained).Keys())
}

func TestRender_IsDeterministic(t *testing.T) {
	b := gp.Build[post]()
	p := b.Combine(b.Include(titleField()), b.Include(cityField()), b.MetaTextScore("s"))
	first := mustRender(t, p)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, mustRender(t, p))
	}
}

func TestRender_ResolutionFailureNamesMember(t *testing.T) {
	b := gp.Build[post]()
	secret := gp.FieldOf(func(p *post) *string { return &p.Secret })

	doc, err := renderPost(t, b.Combine(b.Include(titleField()), b.Include(secret)))
	require.Error(t, err)
	assert.Nil(t, doc)
	iss, ok := gp.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, gp.CodeFieldNotResolvable, iss[0].Code)
	assert.Equal(t, "Secret", iss[0].Params["member"])
	assert.Contains(t, err.Error(), "Secret")
}

func TestRender_SameProjectionDifferentSerializers(t *testing.T) {
	b := gp.Build[comment]()
	p := b.Include(gp.FieldOf(func(c *comment) *string { return &c.Author }))
	reg := gp.NewStructRegistry()

	doc, err := gp.Render(p, renamingSerializer{names: map[string]string{"Author": "a"}}, reg)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, doc.String())

	doc, err = gp.RenderFor(p, reg)
	require.NoError(t, err)
	assert.Equal(t, `{"author":1}`, doc.String())
}

func TestElemMatch_TypedFilter(t *testing.T) {
	author := gp.FieldOf(func(c *comment) *string { return &c.Author })
	score := gp.FieldOf(func(c *comment) *int { return &c.Score })

	p := gp.ElemMatchOf(commentsField(), filter.And(filter.Eq(author, "bob"), filter.Gte(score, 3)))
	doc := mustRender(t, p)
	assert.Equal(t, `{"comments":{"$elemMatch":{"author":"bob","score":{"$gte":3}}}}`, doc.String())
	assert.Equal(t, "elem_match", p.Kind())
}

func TestElemMatch_FilterSeesItemSerializer(t *testing.T) {
	var seen reflect.Type
	f := gp.FilterFunc(func(item gp.Serializer, _ gp.Registry) (gp.Document, error) {
		seen = item.ValueType()
		return gp.Document{{Key: "$eq", Value: "go"}}, nil
	})
	b := gp.Build[post]()
	doc := mustRender(t, b.ElemMatch(gp.FieldOf(func(p *post) *[]string { return &p.Tags }), f))
	assert.Equal(t, reflect.TypeFor[string](), seen)
	assert.Equal(t, `{"tags":{"$elemMatch":{"$eq":"go"}}}`, doc.String())
}

func TestElemMatch_NonArrayField(t *testing.T) {
	b := gp.Build[post]()
	tests := []struct {
		name  string
		p     gp.Projection[post]
		field string
	}{
		{name: "typed_scalar", p: b.ElemMatch(titleField(), nil), field: "title"},
		{name: "path_scalar", p: b.ElemMatch(gp.Path[post]("title"), nil), field: "title"},
		{name: "typed_struct", p: b.ElemMatch(gp.FieldOf(func(p *post) *address { return &p.Address }), nil), field: "addr"},
		{name: "undescribed_path", p: b.ElemMatch(gp.Path[post]("extras"), nil), field: "extras"},
		{name: "inside_combine", p: b.Combine(b.Include(idField()), b.ElemMatch(titleField(), nil)), field: "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := renderPost(t, tt.p)
			require.Error(t, err)
			assert.Nil(t, doc)
			iss, ok := gp.AsIssues(err)
			require.True(t, ok)
			assert.Equal(t, gp.CodeInvalidProjectionTarget, iss[0].Code)
			assert.Equal(t, tt.field, iss[0].Params["field"])
			assert.Equal(t, "array element serialization", iss[0].Params["expected"])
			assert.Contains(t, err.Error(), "'"+tt.field+"'")
		})
	}
}

func TestElemMatchOf_UndescribedPathUsesDeclaredType(t *testing.T) {
	var seen reflect.Type
	f := gp.FilterFunc(func(item gp.Serializer, _ gp.Registry) (gp.Document, error) {
		seen = item.ValueType()
		return gp.Document{}, nil
	})
	doc := mustRender(t, gp.ElemMatchOf(gp.ArrayPath[post, comment]("history"), f))
	assert.Equal(t, `{"history":{"$elemMatch":{}}}`, doc.String())
	assert.Equal(t, reflect.TypeFor[comment](), seen)
}

func TestElemMatch_FilterErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	f := gp.FilterFunc(func(gp.Serializer, gp.Registry) (gp.Document, error) { return nil, boom })
	doc, err := renderPost(t, gp.ElemMatchOf(commentsField(), f))
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "comments")
}

func TestKinds(t *testing.T) {
	b := gp.Build[post]()
	assert.Equal(t, "include", b.Include(titleField()).Kind())
	assert.Equal(t, "exclude", b.Exclude(titleField()).Kind())
	assert.Equal(t, "meta_text_score", b.MetaTextScore("s").Kind())
	assert.Equal(t, "slice", b.Slice(titleField(), 1).Kind())
	assert.Equal(t, "slice", b.SliceLimit(titleField(), 1, 2).Kind())
	assert.Equal(t, "positional", b.Positional(titleField()).Kind())
	assert.Equal(t, "elem_match", b.ElemMatch(titleField(), nil).Kind())
	assert.Equal(t, "combined", b.Include(titleField()).Include(idField()).Kind())
}

func mustSerializer(t *testing.T) gp.Serializer {
	t.Helper()
	s, err := gp.SerializerOf[post](gp.NewStructRegistry())
	require.NoError(t, err)
	return s
}
