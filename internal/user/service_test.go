package user

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hitoshi/microearn/internal/metrics"
	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/repository"
	"github.com/hitoshi/microearn/internal/security"
	"github.com/shopspring/decimal"
)

// --- モック ---

// memoryUserRepo はメモリ上でUserRepositoryを再現するフェイク。
// ReduceCoinsの条件付き更新はmutexで原子的に行う。
type memoryUserRepo struct {
	mu         sync.Mutex
	users      map[string]*model.User
	activities []*model.AdminActivity
	calls      int
	createErr  error
}

func newMemoryUserRepo(users ...*model.User) *memoryUserRepo {
	r := &memoryUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryUserRepo) List(ctx context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := []*model.User{}
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.users[id], nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryUserRepo) DeleteByID(ctx context.Context, id string, activity *model.AdminActivity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	r.activities = append(r.activities, activity)
	return true, nil
}

func (r *memoryUserRepo) ReduceCoins(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	u, ok := r.users[id]
	if !ok {
		return decimal.Zero, repository.ErrNotFound
	}
	if u.Coins.LessThan(amount) {
		return decimal.Zero, repository.ErrInsufficientBalance
	}
	u.Coins = u.Coins.Sub(amount)
	return u.Coins, nil
}

type mockBalanceMetrics struct {
	mu         sync.Mutex
	reduced    decimal.Decimal
	rejections map[string]int
}

func (m *mockBalanceMetrics) RecordCoinsReduced(amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reduced = m.reduced.Add(amount)
}

func (m *mockBalanceMetrics) RecordBalanceRejection(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejections == nil {
		m.rejections = map[string]int{}
	}
	m.rejections[reason]++
}

func newTestService(repo *memoryUserRepo) (*Service, *mockBalanceMetrics) {
	m := &mockBalanceMetrics{}
	return NewService(repo, m, security.NewContentSanitizer()), m
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("code = %q, want %q", apiErr.Code, code)
	}
}

// --- テスト ---

func TestCreateUser_ThenGetByEmail_ReturnsRoleFlags(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	id, err := svc.CreateUser(ctx, CreateUserInput{
		Name:  "<b>Alice</b>",
		Email: "alice@example.com",
		Role:  "Buyer",
		Coins: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("inserted id %q is not a uuid", id)
	}

	got, err := svc.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("email = %q", got.Email)
	}
	if got.Name != "Alice" {
		t.Errorf("name should be sanitized, got %q", got.Name)
	}
	if !got.IsBuyer() || got.IsAdmin() || got.IsWorker() {
		t.Errorf("role flags wrong for %s", got.Role)
	}
}

func TestCreateUser_DuplicateEmail_LeavesExistingUnchanged(t *testing.T) {
	existing := &model.User{ID: uuid.NewString(), Name: "Original", Email: "dup@example.com", Role: model.RoleWorker}
	repo := newMemoryUserRepo(existing)
	svc, _ := newTestService(repo)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Name: "Impostor", Email: "dup@example.com", Role: "Admin"})
	assertAPIErrorCode(t, err, model.ErrCodeUserAlreadyExists)

	if len(repo.users) != 1 || repo.users[existing.ID].Name != "Original" || repo.users[existing.ID].Role != model.RoleWorker {
		t.Errorf("existing user modified: %+v", repo.users[existing.ID])
	}
}

// 重複確認後に一意制約違反が起きた場合も同じエラーに変換する
func TestCreateUser_UniqueViolationRace(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.createErr = repository.ErrDuplicate
	svc, _ := newTestService(repo)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Email: "race@example.com", Role: "Worker"})
	assertAPIErrorCode(t, err, model.ErrCodeUserAlreadyExists)
}

func TestCreateUser_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateUserInput
	}{
		{"missing email", CreateUserInput{Role: "Worker"}},
		{"malformed email", CreateUserInput{Email: "not-an-email", Role: "Worker"}},
		{"unknown role", CreateUserInput{Email: "a@example.com", Role: "Moderator"}},
		{"lowercase role", CreateUserInput{Email: "a@example.com", Role: "admin"}},
		{"negative coins", CreateUserInput{Email: "a@example.com", Role: "Worker", Coins: decimal.NewFromInt(-1)}},
		{"coins beyond two decimals", CreateUserInput{Email: "a@example.com", Role: "Worker", Coins: decimal.RequireFromString("1.005")}},
		{"available coin out of range", CreateUserInput{Email: "a@example.com", Role: "Buyer", AvailableCoin: decimal.New(1, 18)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryUserRepo()
			svc, _ := newTestService(repo)

			_, err := svc.CreateUser(context.Background(), tt.in)
			assertAPIErrorCode(t, err, model.ErrCodeInvalidInput)
			if len(repo.users) != 0 {
				t.Error("no user should be stored")
			}
		})
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	svc, _ := newTestService(newMemoryUserRepo())
	_, err := svc.GetUserByEmail(context.Background(), "ghost@example.com")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

func TestGetUserByID_MalformedIDIsNotFound(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _ := newTestService(repo)

	_, err := svc.GetUserByID(context.Background(), "not-a-uuid")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
	if repo.calls != 0 {
		t.Errorf("store should not be called for malformed id, calls = %d", repo.calls)
	}
}

func TestReduceCoins_Success(t *testing.T) {
	u := &model.User{ID: uuid.NewString(), Email: "w@example.com", Role: model.RoleWorker, Coins: decimal.NewFromInt(100)}
	repo := newMemoryUserRepo(u)
	svc, m := newTestService(repo)

	balance, err := svc.ReduceCoins(context.Background(), u.ID, decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("ReduceCoins: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("balance = %s, want 70", balance)
	}
	if !m.reduced.Equal(decimal.NewFromInt(30)) {
		t.Errorf("metrics reduced = %s, want 30", m.reduced)
	}
}

// 残高50から60を減算しようとすると拒否され、残高は50のまま
func TestReduceCoins_InsufficientBalance_Unchanged(t *testing.T) {
	u := &model.User{ID: uuid.NewString(), Email: "w@example.com", Role: model.RoleWorker, Coins: decimal.NewFromInt(50)}
	repo := newMemoryUserRepo(u)
	svc, m := newTestService(repo)

	_, err := svc.ReduceCoins(context.Background(), u.ID, decimal.NewFromInt(60))
	assertAPIErrorCode(t, err, model.ErrCodeInsufficientBalance)

	if !repo.users[u.ID].Coins.Equal(decimal.NewFromInt(50)) {
		t.Errorf("coins = %s, want 50", repo.users[u.ID].Coins)
	}
	if m.rejections[metrics.ReasonInsufficientBalance] != 1 {
		t.Errorf("rejections = %v", m.rejections)
	}
}

func TestReduceCoins_NonPositiveAmount_NoStoreAccess(t *testing.T) {
	for _, amount := range []string{"0", "-5", "-0.01"} {
		t.Run(amount, func(t *testing.T) {
			repo := newMemoryUserRepo()
			svc, _ := newTestService(repo)

			_, err := svc.ReduceCoins(context.Background(), uuid.NewString(), decimal.RequireFromString(amount))
			assertAPIErrorCode(t, err, model.ErrCodeInvalidInput)
			if repo.calls != 0 {
				t.Errorf("store calls = %d, want 0", repo.calls)
			}
		})
	}
}

// 小数点以下3桁以上の額はDB側で丸められるため、ストアに渡さず拒否する
func TestReduceCoins_UnstorableAmount_NoStoreAccess(t *testing.T) {
	for _, amount := range []string{"0.001", "10.125", "1000000000000000000"} {
		t.Run(amount, func(t *testing.T) {
			u := &model.User{ID: uuid.NewString(), Email: "w@example.com", Role: model.RoleWorker, Coins: decimal.NewFromInt(50)}
			repo := newMemoryUserRepo(u)
			svc, m := newTestService(repo)

			_, err := svc.ReduceCoins(context.Background(), u.ID, decimal.RequireFromString(amount))
			assertAPIErrorCode(t, err, model.ErrCodeInvalidInput)
			if repo.calls != 0 {
				t.Errorf("store calls = %d, want 0", repo.calls)
			}
			if !repo.users[u.ID].Coins.Equal(decimal.NewFromInt(50)) {
				t.Errorf("coins = %s, want 50", repo.users[u.ID].Coins)
			}
			if !m.reduced.IsZero() {
				t.Errorf("metrics reduced = %s, want 0", m.reduced)
			}
		})
	}
}

func TestReduceCoins_TwoDecimalAmountIsExact(t *testing.T) {
	u := &model.User{ID: uuid.NewString(), Email: "w@example.com", Role: model.RoleWorker, Coins: decimal.NewFromInt(50)}
	svc, _ := newTestService(newMemoryUserRepo(u))

	balance, err := svc.ReduceCoins(context.Background(), u.ID, decimal.RequireFromString("0.25"))
	if err != nil {
		t.Fatalf("ReduceCoins: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("49.75")) {
		t.Errorf("balance = %s, want 49.75", balance)
	}
}

func TestReduceCoins_UnknownUser(t *testing.T) {
	svc, _ := newTestService(newMemoryUserRepo())
	_, err := svc.ReduceCoins(context.Background(), uuid.NewString(), decimal.NewFromInt(1))
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// 並行リクエストでも残高が負にならない
func TestReduceCoins_ConcurrentNeverNegative(t *testing.T) {
	u := &model.User{ID: uuid.NewString(), Email: "w@example.com", Role: model.RoleWorker, Coins: decimal.NewFromInt(100)}
	repo := newMemoryUserRepo(u)
	svc, _ := newTestService(repo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ReduceCoins(context.Background(), u.ID, decimal.NewFromInt(10)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("succeeded = %d, want 10", succeeded)
	}
	if !repo.users[u.ID].Coins.IsZero() {
		t.Errorf("coins = %s, want 0", repo.users[u.ID].Coins)
	}
}

func TestDeleteUser_RecordsActivity(t *testing.T) {
	target := &model.User{ID: uuid.NewString(), Email: "t@example.com", Role: model.RoleWorker}
	repo := newMemoryUserRepo(target)
	svc, _ := newTestService(repo)

	if err := svc.DeleteUser(context.Background(), "admin@example.com", target.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if len(repo.activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(repo.activities))
	}
	a := repo.activities[0]
	if a.AdminEmail != "admin@example.com" || a.TargetID != target.ID || a.Action != model.AdminActionDeleteUser {
		t.Errorf("activity = %+v", a)
	}
}

func TestDeleteUser_Errors(t *testing.T) {
	svc, _ := newTestService(newMemoryUserRepo())

	err := svc.DeleteUser(context.Background(), "admin@example.com", "bad-id")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidID)

	err = svc.DeleteUser(context.Background(), "admin@example.com", uuid.NewString())
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}
