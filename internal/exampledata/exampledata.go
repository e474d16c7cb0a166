// Package exampledata provides builder functions the CLI's seed subcommand
// uses to populate a database with representative schema-flexible data.
package exampledata

import (
	"time"

	"github.com/google/uuid"

	"github.com/cabewaldrop/docdb/internal/document"
	"github.com/cabewaldrop/docdb/internal/objectid"
)

// UserProfile returns a nested user profile with a hobbies array and an
// address object.
func UserProfile() *document.Document {
	address := document.NewObject()
	address.Set("street", document.String("123 Main St"))
	address.Set("city", document.String("Metropolis"))
	address.Set("zip", document.I32(12345))

	d := document.New()
	d.Set("username", document.String("ethanrule"))
	d.Set("age", document.I32(30))
	d.Set("email", document.String("ethan@example.com"))
	d.Set("active", document.Bool(true))
	d.Set("session_id", document.String(uuid.NewString()))
	d.Set("hobbies", document.Array([]document.Value{
		document.String("reading"),
		document.String("hiking"),
		document.String("programming"),
	}))
	d.Set("address", document.Obj(address))
	return d
}

// PostWithComments returns a post document with an array of embedded
// comment objects.
func PostWithComments() *document.Document {
	comment1 := document.NewObject()
	comment1.Set("user", document.String("alice"))
	comment1.Set("text", document.String("Nice post!"))

	comment2 := document.NewObject()
	comment2.Set("user", document.String("bob"))
	comment2.Set("text", document.String("Thanks for sharing!"))

	d := document.New()
	d.Set("title", document.String("My Go Project"))
	d.Set("body", document.String("Go is fast and simple!"))
	d.Set("likes", document.I32(42))
	d.Set("request_id", document.String(uuid.NewString()))
	d.Set("comments", document.Array([]document.Value{
		document.Obj(comment1),
		document.Obj(comment2),
	}))
	return d
}

// OrganizationStructure returns a deeply nested org/team/member document.
func OrganizationStructure() *document.Document {
	user1 := document.NewObject()
	user1.Set("name", document.String("Charlie"))
	user1.Set("role", document.String("Developer"))

	user2 := document.NewObject()
	user2.Set("name", document.String("Dana"))
	user2.Set("role", document.String("Designer"))

	team := document.NewObject()
	team.Set("name", document.String("Frontend"))
	team.Set("members", document.Array([]document.Value{
		document.Obj(user1),
		document.Obj(user2),
	}))

	d := document.New()
	d.Set("org_name", document.String("Acme Corp"))
	d.Set("teams", document.Array([]document.Value{document.Obj(team)}))
	return d
}

// MixedTypes returns a document exercising every scalar and composite
// Value kind.
func MixedTypes() *document.Document {
	inner := document.NewObject()
	inner.Set("x", document.I32(123))
	inner.Set("y", document.String("deep"))

	d := document.New()
	d.Set("null_field", document.Null())
	d.Set("int_field", document.I32(-99))
	d.Set("long_field", document.I64(9223372036854775807))
	d.Set("float_field", document.F64(3.141592653589793))
	d.Set("bool_field", document.Bool(false))
	d.Set("string_field", document.String("hello"))
	d.Set("datetime_field", document.DateTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	d.Set("binary_field", document.Binary([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	d.Set("object_id_field", document.OID(objectid.New()))
	d.Set("array_field", document.Array([]document.Value{
		document.I32(1),
		document.String("two"),
		document.Bool(true),
	}))
	d.Set("object_field", document.Obj(inner))
	return d
}

// All returns one of each example document, in the same order the CLI's
// seed subcommand inserts them.
func All() []*document.Document {
	return []*document.Document{
		UserProfile(),
		PostWithComments(),
		OrganizationStructure(),
		MixedTypes(),
	}
}
