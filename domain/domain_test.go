package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type DomainTestSuite struct {
	suite.Suite
}

func (s *DomainTestSuite) TestErrorMessages() {
	var e error

	e = domain.ErrValidation{Model: "User", Unknown: []string{"a", "b"}}
	s.Equal("User: fields not admitted: a, b", e.Error())

	e = domain.ErrValidation{Model: "User", Missing: []string{"name"}}
	s.Equal("User: missing required fields: name", e.Error())

	e = domain.ErrValidation{Model: "User", Unknown: []string{"x"}, Missing: []string{"y"}}
	s.Equal("User: fields not admitted: x; missing required fields: y", e.Error())

	e = domain.ErrValidation{Model: "User"}
	s.Equal("User: invalid document", e.Error())

	e = domain.ErrConfig{Collection: "User", Reason: "nope"}
	s.Equal(`invalid definition for "User": nope`, e.Error())

	e = domain.ErrStore{Op: "insert", Collection: "User", Err: errors.New("boom")}
	s.Equal("insert User: boom", e.Error())

	e = domain.ErrNotFound{Collection: "User", Key: "42"}
	s.Equal("User: 42 not found", e.Error())

	e = domain.ErrNotFound{Key: "Rua Augusta"}
	s.Equal("Rua Augusta not found", e.Error())

	e = domain.ErrDecode{Source: 123, Target: "a"}
	s.Equal("cannot decode int into string", e.Error())
}

func (s *DomainTestSuite) TestErrorsIs() {
	boom := errors.New("boom")
	wrapped := fmt.Errorf("saving: %w", domain.ErrStore{Op: "insert", Err: boom})

	s.ErrorIs(wrapped, domain.ErrStore{})
	s.ErrorIs(wrapped, boom)
	s.NotErrorIs(wrapped, domain.ErrNotFound{})

	s.ErrorIs(fmt.Errorf("x: %w", domain.ErrValidation{Model: "a", Missing: []string{"b"}}), domain.ErrValidation{})
	s.ErrorIs(fmt.Errorf("x: %w", domain.ErrConfig{Collection: "a"}), domain.ErrConfig{})
	s.ErrorIs(fmt.Errorf("x: %w", domain.ErrNotFound{Key: "a"}), domain.ErrNotFound{})
	s.NotErrorIs(domain.ErrConfig{}, domain.ErrValidation{})

	constraint := domain.ErrStore{Op: "insert", Err: fmt.Errorf("%w: email", domain.ErrConstraintViolated)}
	s.ErrorIs(constraint, domain.ErrConstraintViolated)
}

func (s *DomainTestSuite) TestParseIndexKind() {
	valid := map[string]domain.IndexKind{
		"unique":     domain.IndexUnique,
		"Regular":    domain.IndexRegular,
		"geospatial": domain.IndexGeospatial,
		" 2dsphere ": domain.IndexGeospatial,
	}
	for in, expected := range valid {
		kind, err := domain.ParseIndexKind(in)
		s.NoError(err, in)
		s.Equal(expected, kind, in)
	}

	_, err := domain.ParseIndexKind("hashed")
	s.EqualError(err, `unknown index kind "hashed"`)
}

func (s *DomainTestSuite) TestLocationFields() {
	def := domain.ModelDefinition{
		Collection: "User",
		Indexes: []domain.IndexSpec{
			{Field: "email", Kind: domain.IndexUnique},
			{Field: "loc", Kind: domain.IndexGeospatial},
			{Field: "age", Kind: domain.IndexRegular},
		},
	}
	s.Equal([]string{"loc"}, def.LocationFields())

	s.Empty(domain.ModelDefinition{}.LocationFields())
}

func (s *DomainTestSuite) TestClone() {
	m := domain.M{"a": 1, "b": domain.M{"c": 2}}
	c := m.Clone()
	c["a"] = 3
	s.Equal(1, m["a"])
	s.Equal(m["b"], c["b"])

	var empty domain.M
	s.Equal(domain.M{}, empty.Clone())
}

func (s *DomainTestSuite) TestPoint() {
	p := domain.NewPoint(-9.14, 38.72)
	s.Equal("Point", p.Type)
	s.Equal(-9.14, p.Longitude())
	s.Equal(38.72, p.Latitude())

	var zero domain.Point
	s.Zero(zero.Longitude())
	s.Zero(zero.Latitude())
}

func TestDomainTestSuite(t *testing.T) {
	suite.Run(t, new(DomainTestSuite))
}
