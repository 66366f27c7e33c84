package service

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestLoginOutcomes(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	env.addActor(c, "emp", domain.RoleEmployee)
	_, err := env.admission.SubmitJoinRequest(ctx, joinInput("waiting", domain.RoleAgent))
	c.Assert(err, qt.IsNil)

	_, err = env.auth.Login(ctx, "waiting@example.com", "secret-waiting")
	assertCode(c, err, apperrors.CodePendingApproval)
	pendingMsg := apperrors.ToDomainError(err).Message

	_, err = env.auth.Login(ctx, "nobody@example.com", "x")
	assertCode(c, err, apperrors.CodeNotFound)
	c.Assert(apperrors.ToDomainError(err).Message, qt.Not(qt.Equals), pendingMsg)

	_, err = env.auth.Login(ctx, "emp@example.com", "wrong")
	assertCode(c, err, apperrors.CodeInvalidCredentials)

	_, err = env.auth.Login(ctx, "emp@example.com", "")
	assertCode(c, err, apperrors.CodeValidation)

	session, err := env.auth.Login(ctx, " EMP@example.com ", "pw-emp")
	c.Assert(err, qt.IsNil)
	c.Assert(session.Token, qt.Not(qt.Equals), "")
	c.Assert(session.Actor.Role, qt.Equals, domain.RoleEmployee)

	principal, err := env.auth.Authenticate(session.Token)
	c.Assert(err, qt.IsNil)
	c.Assert(principal.ActorID, qt.Equals, session.Actor.ID)
	c.Assert(principal.Role, qt.Equals, domain.RoleEmployee)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)

	_, err := env.auth.Authenticate("")
	assertCode(c, err, apperrors.CodeUnauthorized)
	_, err = env.auth.Authenticate("abc.def.ghi")
	assertCode(c, err, apperrors.CodeUnauthorized)
}

func TestChangePassword(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	emp := env.addActor(c, "emp", domain.RoleEmployee)

	err := env.auth.ChangePassword(ctx, emp, "wrong", "new-secret")
	assertCode(c, err, apperrors.CodeInvalidCredentials)

	c.Assert(env.auth.ChangePassword(ctx, emp, "pw-emp", "new-secret"), qt.IsNil)

	_, err = env.auth.Login(ctx, "emp@example.com", "pw-emp")
	assertCode(c, err, apperrors.CodeInvalidCredentials)
	_, err = env.auth.Login(ctx, "emp@example.com", "new-secret")
	c.Assert(err, qt.IsNil)
}

func TestProfile(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)

	agent := env.addActor(c, "agent", domain.RoleAgent)
	actor, err := env.auth.Profile(context.Background(), agent)
	c.Assert(err, qt.IsNil)
	c.Assert(actor.Name, qt.Equals, "agent")

	_, err = env.auth.Profile(context.Background(), domain.Principal{ActorID: "gone", Role: domain.RoleAgent})
	assertCode(c, err, apperrors.CodeNotFound)
}

func TestEnsureBootstrapAdminIsIdempotent(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	cfg := config.BootstrapConfig{
		AdminEmail:      "root@example.com",
		AdminPassword:   "root-pw",
		AdminName:       "Root",
		AdminExternalID: "root",
	}
	c.Assert(env.auth.EnsureBootstrapAdmin(ctx, cfg), qt.IsNil)
	c.Assert(env.auth.EnsureBootstrapAdmin(ctx, cfg), qt.IsNil)

	role := domain.RoleAdmin
	admins, err := env.store.Actors().List(ctx, &role)
	c.Assert(err, qt.IsNil)
	c.Assert(admins, qt.HasLen, 1)

	session, err := env.auth.Login(ctx, "root@example.com", "root-pw")
	c.Assert(err, qt.IsNil)
	c.Assert(session.Actor.Role, qt.Equals, domain.RoleAdmin)

	c.Assert(env.auth.EnsureBootstrapAdmin(ctx, config.BootstrapConfig{}), qt.IsNil)
}

func TestLoginUpgradesHashCost(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c)
	ctx := context.Background()

	hash, err := auth.HashPassword("legacy-pw", testBcryptCost+1)
	c.Assert(err, qt.IsNil)
	actor := &domain.Actor{ExternalID: "old", Name: "Old", Email: "old@example.com", PasswordHash: hash, Role: domain.RoleAgent}
	c.Assert(env.store.Actors().Create(ctx, actor), qt.IsNil)

	_, err = env.auth.Login(ctx, "old@example.com", "legacy-pw")
	c.Assert(err, qt.IsNil)

	stored, err := env.store.Actors().GetByID(ctx, actor.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(auth.NeedsRehash(stored.PasswordHash, testBcryptCost), qt.IsFalse)
	c.Assert(auth.ComparePassword(stored.PasswordHash, "legacy-pw"), qt.IsNil)
}
