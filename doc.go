// Package goprojection renders typed projection definitions into the
// documents a document database expects.
//
// - Field references name a field either by literal dotted path or by a typed selector
// - A stateless Builder creates immutable projections (include, exclude, slice, positional, $elemMatch, text score) and combines them
// - Render resolves every field against serializer metadata and returns an ordered Document
// - Failures are reported as Issues (field_not_resolvable, invalid_projection_target)
//
// Design policy:
// - Keep the builder, nodes and renderer in the root package; filters live under filter/.
// - Resolution happens at render time only, so a projection can be rendered against different serializers.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	b := goprojection.Build[Order]()
//	p := b.Combine(
//		b.Include(goprojection.FieldOf(func(o *Order) *string { return &o.Status })),
//		b.SliceLimit(goprojection.Path[Order]("lines"), 0, 10),
//	)
//	doc, err := goprojection.RenderFor(p, goprojection.NewStructRegistry())
package goprojection
