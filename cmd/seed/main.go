// Package main provides a tool to seed the database with demo data.
//
// It creates a demo admin user, a workspace with a join code, a general
// channel and an open invite link, so the API can be exercised locally
// without going through registration by hand.
//
// Usage:
//
//	DB_PATH=~/kiiaren/db go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/kiiaren/kiiaren-server/internal/auth"
	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/id"
	"github.com/kiiaren/kiiaren-server/internal/store"
	"github.com/kiiaren/kiiaren-server/internal/store/badgerdb"
)

const (
	demoEmail    = "admin@demo.kiiaren.dev"
	demoPassword = "demo-password"
	demoSlug     = "demo"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/kiiaren/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := badgerdb.Open(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	user, err := seedUser(ctx, s)
	if err != nil {
		log.Fatalf("Failed to seed user: %v", err)
	}

	ws, err := seedWorkspace(ctx, s, user)
	if err != nil {
		log.Fatalf("Failed to seed workspace: %v", err)
	}

	if err := seedInvite(ctx, s, ws, user); err != nil {
		log.Fatalf("Failed to seed invite link: %v", err)
	}

	fmt.Println("\nSeed complete.")
	fmt.Printf("  login:     %s / %s\n", demoEmail, demoPassword)
	fmt.Printf("  workspace: %s (slug %q, join code %s)\n", ws.Name, ws.Slug, ws.JoinCode)
}

func seedUser(ctx context.Context, s *badgerdb.Store) (*domain.User, error) {
	if existing, err := s.GetUserByEmail(ctx, demoEmail); err == nil {
		fmt.Printf("Demo user already exists (%s)\n", existing.ID)
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        demoEmail,
		PasswordHash: hash,
		DisplayName:  "Demo Admin",
	}
	user.ID = id.MustGenerate("usr")
	user.InitTimestamps()

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	fmt.Printf("Created demo user %s\n", user.ID)
	return user, nil
}

func seedWorkspace(ctx context.Context, s *badgerdb.Store, owner *domain.User) (*domain.Workspace, error) {
	if existing, err := s.GetWorkspaceBySlug(ctx, demoSlug); err == nil {
		fmt.Printf("Demo workspace already exists (%s)\n", existing.ID)
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	joinCode, err := id.Token(8)
	if err != nil {
		return nil, err
	}

	ws := &domain.Workspace{
		Name:            "Demo Workspace",
		Slug:            demoSlug,
		OwnerID:         owner.ID,
		JoinCode:        joinCode,
		JoinCodeEnabled: true,
	}
	ws.ID = id.MustGenerate("ws")
	ws.InitTimestamps()

	if err := s.CreateWorkspace(ctx, ws); err != nil {
		return nil, err
	}

	m := &domain.Membership{
		WorkspaceID: ws.ID,
		UserID:      owner.ID,
		Role:        domain.WorkspaceRoleAdmin,
		JoinedVia:   domain.JoinedViaCreated,
	}
	m.ID = id.MustGenerate("mem")
	m.InitTimestamps()
	if err := s.CreateMembership(ctx, m); err != nil {
		return nil, err
	}

	ch := &domain.Channel{
		WorkspaceID: ws.ID,
		Name:        "general",
		CreatedBy:   owner.ID,
	}
	ch.ID = id.MustGenerate("ch")
	ch.InitTimestamps()
	if err := s.CreateChannel(ctx, ch); err != nil {
		return nil, err
	}

	fmt.Printf("Created demo workspace %s with #general\n", ws.ID)
	return ws, nil
}

func seedInvite(ctx context.Context, s *badgerdb.Store, ws *domain.Workspace, creator *domain.User) error {
	code, err := id.Token(10)
	if err != nil {
		return err
	}

	now := time.Now()
	link := &domain.InviteLink{
		ID:          id.MustGenerate("inv"),
		WorkspaceID: ws.ID,
		Code:        code,
		Scope:       domain.InviteScope{Kind: domain.ScopeWorkspace},
		CreatedBy:   creator.ID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(7 * 24 * time.Hour),
	}
	if err := s.CreateInviteLink(ctx, link); err != nil {
		return err
	}

	fmt.Printf("Created invite link %s (code %s, expires %s)\n",
		link.ID, link.Code, link.ExpiresAt.Format(time.RFC3339))
	return nil
}
