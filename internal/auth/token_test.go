package auth

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var testActor = &domain.Actor{ID: "0b7c1c9e-actor", Email: "a@example.com", Role: domain.RoleAgent}

func TestGenerateAndParseToken(t *testing.T) {
	c := qt.New(t)

	tm := NewTokenManager("secret", 30)
	token, expiresAt, err := tm.GenerateToken(testActor)
	c.Assert(err, qt.IsNil)
	c.Assert(expiresAt.After(time.Now()), qt.IsTrue)

	claims, err := tm.ParseToken(token)
	c.Assert(err, qt.IsNil)
	p := claims.Principal()
	c.Assert(p.ActorID, qt.Equals, testActor.ID)
	c.Assert(p.Email, qt.Equals, testActor.Email)
	c.Assert(p.Role, qt.Equals, domain.RoleAgent)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	c := qt.New(t)

	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken(testActor)
	c.Assert(err, qt.IsNil)

	tm.now = time.Now
	_, err = tm.ParseToken(token)
	c.Assert(err, qt.IsNotNil)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	c := qt.New(t)

	token, _, err := NewTokenManager("one", 10).GenerateToken(testActor)
	c.Assert(err, qt.IsNil)

	_, err = NewTokenManager("two", 10).ParseToken(token)
	c.Assert(err, qt.IsNotNil)

	_, err = NewTokenManager("one", 10).ParseToken(token + "x")
	c.Assert(err, qt.IsNotNil)

	_, err = NewTokenManager("one", 10).ParseToken("not-a-token")
	c.Assert(err, qt.IsNotNil)
}

func TestPasswordHashing(t *testing.T) {
	c := qt.New(t)

	hash, err := HashPassword("s3cret", 4)
	c.Assert(err, qt.IsNil)
	c.Assert(hash, qt.Not(qt.Equals), "s3cret")
	c.Assert(ComparePassword(hash, "s3cret"), qt.IsNil)
	c.Assert(ComparePassword(hash, "wrong"), qt.IsNotNil)
}
