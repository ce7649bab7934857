package goprojection_test

import (
	"reflect"

	gp "github.com/reoring/goprojection"
)

type address struct {
	Street string `bson:"street"`
	City   string `bson:"city"`
}

type comment struct {
	Author string `bson:"author"`
	Score  int    `bson:"score"`
}

type post struct {
	ID       string         `bson:"_id"`
	Title    string         `json:"title,omitempty"`
	Body     string
	Tags     []string       `bson:"tags"`
	Comments []comment      `bson:"comments"`
	Address  address        `bson:"addr"`
	Owner    *address       `bson:"owner"`
	Meta     map[string]any `bson:"meta"`
	Secret   string         `bson:"-"`
	internal string
}

func idField() gp.Field[post]    { return gp.FieldOf(func(p *post) *string { return &p.ID }) }
func titleField() gp.Field[post] { return gp.FieldOf(func(p *post) *string { return &p.Title }) }
func cityField() gp.Field[post]  { return gp.FieldOf(func(p *post) *string { return &p.Address.City }) }

func ownerCityField() gp.Field[post] {
	return gp.FieldOf(func(p *post) *string { return &p.Owner.City })
}

func commentsField() gp.ArrayField[post, comment] {
	return gp.ArrayOf(func(p *post) *[]comment { return &p.Comments })
}

type linked struct {
	Name string  `bson:"name"`
	Next *linked `bson:"next"`
}

// zeroPair has zero-size members sharing one address.
type zeroPair struct {
	A struct{} `bson:"a"`
	B struct{} `bson:"b"`
	N int      `bson:"n"`
}

// renamingSerializer describes comment with custom element names, used to
// render the same projection against different metadata.
type renamingSerializer struct {
	names map[string]string
}

func (s renamingSerializer) ValueType() reflect.Type { return reflect.TypeFor[comment]() }

func (s renamingSerializer) Member(name string) (gp.MemberInfo, bool) {
	el, ok := s.names[name]
	if !ok {
		return gp.MemberInfo{}, false
	}
	return gp.MemberInfo{ElementName: el, Type: reflect.TypeFor[string]()}, true
}

// opaqueSerializer exposes no metadata at all.
type opaqueSerializer struct{}

func (opaqueSerializer) ValueType() reflect.Type { return reflect.TypeFor[post]() }
