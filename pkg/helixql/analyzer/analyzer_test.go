package analyzer

import (
	"testing"

	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/helixdb/helix-go/pkg/herrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := ast.Parse("t.hx", src)
	require.NoError(t, err)
	return prog
}

func TestCheckAcceptsWellFormedQuery(t *testing.T) {
	prog := mustParse(t, `N::User {
		name: String,
		email: String INDEX,
	}

	QUERY findUser(email: String) => {
		u <- N::User
		RETURN u
	}`)

	an := New(prog)
	diags := an.Check(prog)
	assert.Empty(t, diags)
}

func TestCheckFlagsUnknownSchema(t *testing.T) {
	prog := mustParse(t, `QUERY q() => {
		x <- N::Ghost
		RETURN x
	}`)

	an := New(prog)
	diags := an.Check(prog)
	require.Len(t, diags, 1)
	assert.Equal(t, "E210", diags[0].Code)
	assert.Equal(t, herrors.SeverityError, diags[0].Severity)
}

func TestCheckFlagsUnknownFieldAccess(t *testing.T) {
	prog := mustParse(t, `N::User {
		name: String,
	}

	QUERY q() => {
		x <- N::User::{bogus}
		RETURN x
	}`)

	an := New(prog)
	diags := an.Check(prog)
	require.Len(t, diags, 1)
	assert.Equal(t, "E220", diags[0].Code)
}

func TestCheckFlagsUnrecognizedStep(t *testing.T) {
	prog := mustParse(t, `N::User { name: String }

	QUERY q() => {
		x <- N::User::Bogus()
		RETURN x
	}`)

	an := New(prog)
	diags := an.Check(prog)
	require.Len(t, diags, 1)
	assert.Equal(t, "E230", diags[0].Code)
}

func TestCheckFlagsReassignmentOfBoundName(t *testing.T) {
	prog := mustParse(t, `N::User { name: String }

	QUERY q() => {
		u <- N::User
		u <- N::User
		RETURN u
	}`)

	an := New(prog)
	diags := an.Check(prog)
	require.Len(t, diags, 1)
	assert.Equal(t, "E201", diags[0].Code)
}

func TestCheckFlagsUnboundIdentifier(t *testing.T) {
	prog := mustParse(t, `QUERY q() => {
		RETURN ghost
	}`)

	an := New(prog)
	diags := an.Check(prog)
	require.Len(t, diags, 1)
	assert.Equal(t, "E301", diags[0].Code)
}

func TestCheckClassifiesCountAsScalarAndGroupByAsAggregate(t *testing.T) {
	prog := mustParse(t, `N::User { city: String }

	QUERY q() => {
		total <- N::User::Count()
		groups <- N::User::GroupBy("city")
		RETURN total
	}`)

	an := New(prog)
	diags := an.Check(prog)
	assert.Empty(t, diags)
}

func TestCheckAcceptsWhereComparisonAgainstSchemaField(t *testing.T) {
	prog := mustParse(t, `N::User { name: String, age: I64 }

	QUERY q() => {
		x <- N::User::Where(age > 17)
		RETURN x
	}`)

	an := New(prog)
	diags := an.Check(prog)
	assert.Empty(t, diags)
}

func TestCheckFlagsWhereComparisonAgainstUnknownField(t *testing.T) {
	prog := mustParse(t, `N::User { name: String }

	QUERY q() => {
		x <- N::User::Where(bogus == 1)
		RETURN x
	}`)

	an := New(prog)
	diags := an.Check(prog)
	require.Len(t, diags, 1)
	assert.Equal(t, "E220", diags[0].Code)
}

func TestCheckAcceptsFromVAndToVSteps(t *testing.T) {
	prog := mustParse(t, `N::Person { name: String }
	V::Doc { embedding: F64 }
	E::Cites { From: Person, To: Doc, Properties: {} }

	QUERY q() => {
		x <- N::Person::OutE("Cites")::ToV()
		y <- N::Person::OutE("Cites")::FromV()
		RETURN x
	}`)

	an := New(prog)
	diags := an.Check(prog)
	assert.Empty(t, diags)
}

func TestCheckAcceptsHybridSearchSource(t *testing.T) {
	prog := mustParse(t, `V::Doc { embedding: F64 }

	QUERY q(text: String, vec: [F64]) => {
		x <- HybridSearch::Doc(text, vec, 0.5, 10)
		RETURN x
	}`)

	an := New(prog)
	diags := an.Check(prog)
	assert.Empty(t, diags)
}

func TestSymbolTableHasFieldResolvesSchemaFields(t *testing.T) {
	prog := mustParse(t, `N::User { name: String, email: String INDEX }`)
	st := BuildSymbolTable(prog)
	assert.True(t, st.HasField("User", "name"))
	assert.True(t, st.HasField("User", "email"))
	assert.False(t, st.HasField("User", "nonexistent"))
	assert.False(t, st.HasField("Ghost", "name"))
}
