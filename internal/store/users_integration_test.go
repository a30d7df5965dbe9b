// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

//go:build integration

package store_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tourbase/tourbase/internal/auth"
	"github.com/tourbase/tourbase/internal/store"
)

var (
	pgContainer *postgres.PostgresContainer
	testPool    *pgxpool.Pool
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	pgContainer, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	testPool, err = store.Connect(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if testPool != nil {
		testPool.Close()
	}
	if pgContainer != nil {
		Expect(pgContainer.Terminate(context.Background())).To(Succeed())
	}
})

var _ = Describe("PostgresUserRepository", func() {
	var (
		ctx  context.Context
		repo *store.PostgresUserRepository
	)

	// Every spec gets a distinct email so specs stay independent.
	newUser := func() *auth.User {
		email := fmt.Sprintf("%s@example.com", ulid.Make().String())
		user, err := auth.NewUser("Test User", email, "$2a$04$hashhashhashhashhashha")
		Expect(err).NotTo(HaveOccurred())
		return user
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = store.NewPostgresUserRepository(testPool)
	})

	It("creates a user and fetches it by ID and email", func() {
		user := newUser()
		Expect(repo.Create(ctx, user)).To(Succeed())

		byID, err := repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Email).To(Equal(user.Email))
		Expect(byID.Role).To(Equal(auth.RoleUser))
		Expect(byID.Active).To(BeTrue())

		byEmail, err := repo.GetByEmail(ctx, user.Email)
		Expect(err).NotTo(HaveOccurred())
		Expect(byEmail.ID).To(Equal(user.ID))
	})

	It("rejects a second user with the same email", func() {
		user := newUser()
		Expect(repo.Create(ctx, user)).To(Succeed())

		dupe, err := auth.NewUser("Other User", user.Email, "$2a$04$hashhashhashhashhashhb")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Create(ctx, dupe)).To(MatchError(auth.ErrDuplicateEmail))
	})

	It("updates the password and clears any pending reset", func() {
		user := newUser()
		Expect(repo.Create(ctx, user)).To(Succeed())
		Expect(repo.SetResetToken(ctx, user.ID, "tokenhash", time.Now().Add(auth.ResetTokenExpiry))).To(Succeed())

		changedAt := time.Now().Add(-time.Second)
		Expect(repo.UpdatePassword(ctx, user.ID, "newhash", changedAt)).To(Succeed())

		got, err := repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal("newhash"))
		Expect(got.PasswordChangedAt).NotTo(BeNil())
		Expect(got.ResetTokenHash).To(BeNil())
		Expect(got.ResetTokenExpiresAt).To(BeNil())
	})

	It("consumes a reset token exactly once", func() {
		user := newUser()
		Expect(repo.Create(ctx, user)).To(Succeed())
		Expect(repo.SetResetToken(ctx, user.ID, "consumehash", time.Now().Add(auth.ResetTokenExpiry))).To(Succeed())

		now := time.Now()
		got, err := repo.ConsumeResetToken(ctx, "consumehash", "resethash", now.Add(-time.Second), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(user.ID))
		Expect(got.PasswordHash).To(Equal("resethash"))
		Expect(got.ResetTokenHash).To(BeNil())

		_, err = repo.ConsumeResetToken(ctx, "consumehash", "resethash2", now.Add(-time.Second), now)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("does not consume an expired token", func() {
		user := newUser()
		Expect(repo.Create(ctx, user)).To(Succeed())
		Expect(repo.SetResetToken(ctx, user.ID, "expiredhash", time.Now().Add(-time.Minute))).To(Succeed())

		now := time.Now()
		_, err := repo.ConsumeResetToken(ctx, "expiredhash", "resethash", now.Add(-time.Second), now)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("hides deactivated users from every lookup", func() {
		user := newUser()
		Expect(repo.Create(ctx, user)).To(Succeed())
		Expect(repo.Deactivate(ctx, user.ID)).To(Succeed())

		_, err := repo.GetByID(ctx, user.ID)
		Expect(err).To(MatchError(auth.ErrNotFound))

		_, err = repo.GetByEmail(ctx, user.Email)
		Expect(err).To(MatchError(auth.ErrNotFound))

		Expect(repo.Deactivate(ctx, user.ID)).To(MatchError(auth.ErrNotFound))
	})

	It("persists profile updates", func() {
		user := newUser()
		Expect(repo.Create(ctx, user)).To(Succeed())

		user.Name = "Renamed User"
		user.UpdatedAt = time.Now()
		Expect(repo.Update(ctx, user)).To(Succeed())

		got, err := repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("Renamed User"))
	})
})
