package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/hypeshelf/internal/apperror"
	"github.com/sakif/hypeshelf/internal/model"
)

// =========================================================================
// RESOLVE OR CREATE TESTS
// =========================================================================

func TestResolveOrCreate_NoIdentity(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []*model.Identity{nil, {Subject: ""}} {
		_, err := env.users.ResolveOrCreate(context.Background(), id)
		if !errors.Is(err, apperror.ErrUnauthenticated) {
			t.Errorf("ResolveOrCreate(%v) error = %v, want ErrUnauthenticated", id, err)
		}
	}
}

func TestResolveOrCreate_CreatesWithDefaults(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.users.ResolveOrCreate(context.Background(), &model.Identity{Subject: "user_1"})
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}

	if user.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleUser)
	}
	if user.DisplayName != DefaultDisplayName {
		t.Errorf("DisplayName = %q, want %q", user.DisplayName, DefaultDisplayName)
	}
	if user.ImageURL != "" {
		t.Errorf("ImageURL = %q, want empty", user.ImageURL)
	}
}

func TestResolveOrCreate_UsesIdentityProfile(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.users.ResolveOrCreate(context.Background(), &model.Identity{
		Subject:     "user_1",
		DisplayName: "Alex",
		ImageURL:    "https://img.example.com/alex.png",
	})
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}

	if user.DisplayName != "Alex" {
		t.Errorf("DisplayName = %q, want %q", user.DisplayName, "Alex")
	}
	if user.ImageURL != "https://img.example.com/alex.png" {
		t.Errorf("ImageURL = %q", user.ImageURL)
	}
}

func TestResolveOrCreate_SameSubjectSameUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.users.ResolveOrCreate(ctx, identity("user_1"))
	if err != nil {
		t.Fatalf("first ResolveOrCreate() error = %v", err)
	}
	second, err := env.users.ResolveOrCreate(ctx, identity("user_1"))
	if err != nil {
		t.Fatalf("second ResolveOrCreate() error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("IDs differ: %q vs %q", first.ID, second.ID)
	}
	if n := env.userRepo.count(); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}
}

func TestResolveOrCreate_DoesNotTouchExistingRole(t *testing.T) {
	env := newTestEnv(t)
	env.admin("boss")

	user, err := env.users.ResolveOrCreate(context.Background(), identity("boss"))
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleAdmin)
	}
}

func TestResolveOrCreate_ConcurrentFirstAccess(t *testing.T) {
	env := newTestEnv(t)

	const callers = 20
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := env.users.ResolveOrCreate(context.Background(), identity("racer"))
			errs[i] = err
			if user != nil {
				ids[i] = user.ID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d error = %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d got id %q, want %q", i, ids[i], ids[0])
		}
	}
	if n := env.userRepo.count(); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}
}

func TestResolveOrCreate_ConflictRereads(t *testing.T) {
	env := newTestEnv(t)

	// Another process inserts the subject between our lookup and insert.
	var winner *model.User
	env.userRepo.beforeCreate = func() {
		winner = env.userRepo.put("contested", "Winner", model.RoleUser)
	}

	user, err := env.users.ResolveOrCreate(context.Background(), identity("contested"))
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	if user.ID != winner.ID {
		t.Errorf("ID = %q, want the winner's %q", user.ID, winner.ID)
	}
	if n := env.userRepo.count(); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}
}

func TestResolveOrCreate_CancelledCallerDoesNotFailOthers(t *testing.T) {
	env := newTestEnv(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	env.userRepo.beforeCreate = func() {
		once.Do(func() { close(entered) })
		<-release
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		user *model.User
		err  error
	}
	leader := make(chan outcome, 1)
	go func() {
		u, err := env.users.ResolveOrCreate(leaderCtx, identity("shared"))
		leader <- outcome{u, err}
	}()

	<-entered
	follower := make(chan outcome, 1)
	go func() {
		u, err := env.users.ResolveOrCreate(context.Background(), identity("shared"))
		follower <- outcome{u, err}
	}()

	// The client that started the insert goes away mid-flight.
	cancel()
	close(release)

	for name, ch := range map[string]chan outcome{"leader": leader, "follower": follower} {
		got := <-ch
		if got.err != nil {
			t.Fatalf("%s: ResolveOrCreate() error = %v", name, got.err)
		}
		if got.user.Subject != "shared" {
			t.Errorf("%s: Subject = %q, want shared", name, got.user.Subject)
		}
	}
	if n := env.userRepo.count(); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}
}

func TestResolveOrCreate_ReadMissAfterInsert(t *testing.T) {
	env := newTestEnv(t)
	env.userRepo.loseAfterCreate = true

	_, err := env.users.ResolveOrCreate(context.Background(), identity("ghost"))
	if !errors.Is(err, apperror.ErrStoreFailure) {
		t.Fatalf("ResolveOrCreate() error = %v, want ErrStoreFailure", err)
	}
	if env.userRepo.createCalls != 1 {
		t.Errorf("CreateUser calls = %d, want 1 (no retry)", env.userRepo.createCalls)
	}
}

func TestResolveOrCreate_LookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.userRepo.getErr = errors.New("disk on fire")

	_, err := env.users.ResolveOrCreate(context.Background(), identity("user_1"))
	if err == nil {
		t.Fatal("ResolveOrCreate() should propagate lookup failures")
	}
	if env.userRepo.createCalls != 0 {
		t.Errorf("CreateUser called %d times after a failed lookup", env.userRepo.createCalls)
	}
}

// =========================================================================
// SYNC EVENT TESTS
// =========================================================================

func TestUpsertFromExternalEvent_CreatesThenUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.UpsertFromExternalEvent(ctx, model.SyncEvent{
		Subject:     "user_sync",
		DisplayName: "Sam",
		Role:        model.RoleUser,
	})
	if err != nil {
		t.Fatalf("UpsertFromExternalEvent() create error = %v", err)
	}

	updated, err := env.users.UpsertFromExternalEvent(ctx, model.SyncEvent{
		Subject:     "user_sync",
		DisplayName: "Sam Lee",
		ImageURL:    "https://img.example.com/sam.png",
		Role:        model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("UpsertFromExternalEvent() update error = %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("ID changed: %q → %q", created.ID, updated.ID)
	}
	if updated.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", updated.Role, model.RoleAdmin)
	}
	if updated.DisplayName != "Sam Lee" {
		t.Errorf("DisplayName = %q, want %q", updated.DisplayName, "Sam Lee")
	}
}

func TestUpsertFromExternalEvent_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := model.SyncEvent{Subject: "user_x", DisplayName: "X", Role: model.RoleUser}

	first, err := env.users.UpsertFromExternalEvent(ctx, event)
	if err != nil {
		t.Fatalf("first upsert error = %v", err)
	}
	second, err := env.users.UpsertFromExternalEvent(ctx, event)
	if err != nil {
		t.Fatalf("second upsert error = %v", err)
	}

	if *first != *second {
		t.Errorf("state differs after replay:\n first  %+v\n second %+v", first, second)
	}
	if n := env.userRepo.count(); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}
}

func TestUpsertFromExternalEvent_Defaults(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.users.UpsertFromExternalEvent(context.Background(), model.SyncEvent{
		Subject: "user_blank",
		Role:    "superuser",
	})
	if err != nil {
		t.Fatalf("UpsertFromExternalEvent() error = %v", err)
	}
	if user.DisplayName != DefaultDisplayName {
		t.Errorf("DisplayName = %q, want %q", user.DisplayName, DefaultDisplayName)
	}
	if user.Role != model.RoleUser {
		t.Errorf("unknown role stored as %q, want %q", user.Role, model.RoleUser)
	}
}

func TestUpsertFromExternalEvent_MissingSubject(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.UpsertFromExternalEvent(context.Background(), model.SyncEvent{DisplayName: "nobody"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// LOOKUP / CURRENT USER TESTS
// =========================================================================

func TestLookupBySubject(t *testing.T) {
	env := newTestEnv(t)
	env.userRepo.put("known", "Known", model.RoleUser)

	if _, err := env.users.LookupBySubject(context.Background(), "known"); err != nil {
		t.Errorf("LookupBySubject(known) error = %v", err)
	}
	if _, err := env.users.LookupBySubject(context.Background(), "unknown"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("LookupBySubject(unknown) error = %v, want ErrNotFound", err)
	}
	if n := env.userRepo.count(); n != 1 {
		t.Errorf("lookup created users: count = %d, want 1", n)
	}
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.CurrentUser(ctx, nil); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("CurrentUser(nil) error = %v, want ErrUnauthenticated", err)
	}

	user, err := env.users.CurrentUser(ctx, identity("fresh"))
	if err != nil {
		t.Fatalf("CurrentUser(fresh) error = %v", err)
	}
	if user != nil {
		t.Errorf("CurrentUser(fresh) = %+v, want nil", user)
	}

	env.userRepo.put("existing", "Existing", model.RoleAdmin)
	user, err = env.users.CurrentUser(ctx, identity("existing"))
	if err != nil {
		t.Fatalf("CurrentUser(existing) error = %v", err)
	}
	if user == nil || user.Role != model.RoleAdmin {
		t.Errorf("CurrentUser(existing) = %+v, want admin user", user)
	}
}
