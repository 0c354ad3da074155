package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/repository"
)

// --- テスト用モック ---

// mockLegacyRepo はテスト用のLegacyAccountRepositoryモック。
type mockLegacyRepo struct {
	accounts map[string]*model.LegacyAccount // email -> account
	findErr  error
}

func newMockLegacyRepo() *mockLegacyRepo {
	return &mockLegacyRepo{accounts: make(map[string]*model.LegacyAccount)}
}

func (m *mockLegacyRepo) FindByEmail(_ context.Context, email string) (*model.LegacyAccount, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.accounts[email], nil
}

// mockProfileRepo はテスト用のProfileRepositoryモック。
// owner_idをキーにプロフィール行を保持し、ReassignOwnerで実際に付け替える。
type mockProfileRepo struct {
	profiles []*model.Profile

	listErr     error
	reassignErr error

	reassignCalls int
}

func (m *mockProfileRepo) FindByOwnerID(_ context.Context, ownerID string) (*model.Profile, error) {
	for _, p := range m.profiles {
		if p.OwnerID == ownerID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	m.profiles = append(m.profiles, profile)
	return nil
}

func (m *mockProfileRepo) UpdateNiko(_ context.Context, _ string, _ float64) error {
	return nil
}

func (m *mockProfileRepo) ListByOwnerID(_ context.Context, ownerID string) ([]*model.Profile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*model.Profile
	for _, p := range m.profiles {
		if p.OwnerID == ownerID {
			snapshot := *p
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (m *mockProfileRepo) ReassignOwner(_ context.Context, oldOwnerID, newOwnerID string) error {
	m.reassignCalls++
	if m.reassignErr != nil {
		return m.reassignErr
	}
	for _, p := range m.profiles {
		if p.OwnerID == oldOwnerID {
			p.OwnerID = newOwnerID
		}
	}
	return nil
}

// mockHistoryRepo はテスト用のHistoryRepositoryモック。
type mockHistoryRepo struct {
	entries []*model.HistoryEntry

	listErr     error
	reassignErr error

	reassignCalls int
}

func (m *mockHistoryRepo) Create(_ context.Context, entry *model.HistoryEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistoryRepo) ListByOwnerID(_ context.Context, ownerID string) ([]*model.HistoryEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*model.HistoryEntry
	for _, e := range m.entries {
		if e.OwnerID == ownerID {
			snapshot := *e
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (m *mockHistoryRepo) ReassignOwner(_ context.Context, oldOwnerID, newOwnerID string) error {
	m.reassignCalls++
	if m.reassignErr != nil {
		return m.reassignErr
	}
	for _, e := range m.entries {
		if e.OwnerID == oldOwnerID {
			e.OwnerID = newOwnerID
		}
	}
	return nil
}

func (m *mockHistoryRepo) UpdateByIDAndOwner(_ context.Context, _ int64, _ string, _ repository.HistoryPatch) (bool, error) {
	return false, nil
}

func (m *mockHistoryRepo) ListPage(_ context.Context, _ string, _, _ int) ([]*model.HistoryEntry, error) {
	return nil, nil
}

func (m *mockHistoryRepo) CountReady(_ context.Context) (int, error) {
	return 0, nil
}

// mockQuestionRepo はテスト用のQuestionRepositoryモック。
type mockQuestionRepo struct {
	entries []*model.QuestionEntry

	listErr     error
	reassignErr error

	reassignCalls int
}

func (m *mockQuestionRepo) Create(_ context.Context, entry *model.QuestionEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockQuestionRepo) ListByOwnerID(_ context.Context, ownerID string) ([]*model.QuestionEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*model.QuestionEntry
	for _, e := range m.entries {
		if e.OwnerID == ownerID {
			snapshot := *e
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (m *mockQuestionRepo) ReassignOwner(_ context.Context, oldOwnerID, newOwnerID string) error {
	m.reassignCalls++
	if m.reassignErr != nil {
		return m.reassignErr
	}
	for _, e := range m.entries {
		if e.OwnerID == oldOwnerID {
			e.OwnerID = newOwnerID
		}
	}
	return nil
}

// newTestService は全モックを組み立てたServiceと各モックを返す。
func newTestService() (*Service, *mockLegacyRepo, *mockProfileRepo, *mockQuestionRepo, *mockHistoryRepo) {
	legacyRepo := newMockLegacyRepo()
	profileRepo := &mockProfileRepo{}
	questionRepo := &mockQuestionRepo{}
	historyRepo := &mockHistoryRepo{}
	svc := NewService(legacyRepo, profileRepo, questionRepo, historyRepo, nil)
	return svc, legacyRepo, profileRepo, questionRepo, historyRepo
}

// apiErrorCode はエラーからAPIErrorのコードを取り出す。APIErrorでない場合は空文字を返す。
func apiErrorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// --- Locate ---

// TestService_Locate_Found はemail一致の旧アカウントが返ることをテストする。
func TestService_Locate_Found(t *testing.T) {
	svc, legacyRepo, _, _, _ := newTestService()
	legacyRepo.accounts["old@example.com"] = &model.LegacyAccount{LocalID: "L1", Email: "old@example.com"}

	account, err := svc.Locate(context.Background(), "old@example.com")
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if account == nil {
		t.Fatal("expected non-nil account")
	}
	if account.LocalID != "L1" {
		t.Errorf("account.LocalID = %q, want %q", account.LocalID, "L1")
	}
}

// TestService_Locate_NotFound は一致なしの場合にnilが返ることをテストする（エラーではない）。
func TestService_Locate_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	account, err := svc.Locate(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if account != nil {
		t.Errorf("account = %+v, want nil", account)
	}
}

// TestService_Locate_QueryFailure はリポジトリ障害がQueryErrorへ変換されることをテストする。
func TestService_Locate_QueryFailure(t *testing.T) {
	svc, legacyRepo, _, _, _ := newTestService()
	legacyRepo.findErr = errors.New("connection refused")

	_, err := svc.Locate(context.Background(), "old@example.com")
	if code := apiErrorCode(err); code != model.ErrCodeQueryError {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeQueryError)
	}
}

// --- Migrate ---

// seedOwnedRecords はL1所有のヒストリー3件・Q&A2件を投入する。
func seedOwnedRecords(historyRepo *mockHistoryRepo, questionRepo *mockQuestionRepo) {
	historyRepo.entries = []*model.HistoryEntry{
		{ID: 1, OwnerID: "L1", Text: "день 1"},
		{ID: 2, OwnerID: "L1", Text: "день 2"},
		{ID: 3, OwnerID: "L1", Text: "день 3"},
	}
	questionRepo.entries = []*model.QuestionEntry{
		{ID: 1, OwnerID: "L1", Question: "вопрос 1"},
		{ID: 2, OwnerID: "L1", Question: "вопрос 2"},
	}
}

// TestService_Migrate_AllRecordsReassigned は3ヒストリー+2Q&Aの移行後、
// 旧オーナーの行が0件、新オーナーの行が5件となることをテストする。
func TestService_Migrate_AllRecordsReassigned(t *testing.T) {
	svc, _, _, questionRepo, historyRepo := newTestService()
	seedOwnedRecords(historyRepo, questionRepo)

	result, err := svc.Migrate(context.Background(), "L1", "A9")
	if err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	if len(result.HistoryEntries) != 3 {
		t.Errorf("len(result.HistoryEntries) = %d, want 3", len(result.HistoryEntries))
	}
	if len(result.QuestionEntries) != 2 {
		t.Errorf("len(result.QuestionEntries) = %d, want 2", len(result.QuestionEntries))
	}

	// スナップショットは更新前の所有者を保持する
	for _, e := range result.HistoryEntries {
		if e.OwnerID != "L1" {
			t.Errorf("snapshot OwnerID = %q, want %q", e.OwnerID, "L1")
		}
	}

	// 移行後: L1所有の行は存在せず、A9所有の行がちょうど5件
	var l1Count, a9Count int
	for _, e := range historyRepo.entries {
		switch e.OwnerID {
		case "L1":
			l1Count++
		case "A9":
			a9Count++
		}
	}
	for _, e := range questionRepo.entries {
		switch e.OwnerID {
		case "L1":
			l1Count++
		case "A9":
			a9Count++
		}
	}
	if l1Count != 0 {
		t.Errorf("L1所有の行が%d件残っている。want 0", l1Count)
	}
	if a9Count != 5 {
		t.Errorf("A9所有の行 = %d件, want 5", a9Count)
	}

	// 内容は所有者以外変更されない
	if historyRepo.entries[0].Text != "день 1" {
		t.Errorf("entry text = %q, want %q", historyRepo.entries[0].Text, "день 1")
	}
}

// TestService_Migrate_Idempotent は同じ引数での2回目の実行が全変種で
// 空の結果を返すことをテストする。
func TestService_Migrate_Idempotent(t *testing.T) {
	svc, _, _, questionRepo, historyRepo := newTestService()
	seedOwnedRecords(historyRepo, questionRepo)

	if _, err := svc.Migrate(context.Background(), "L1", "A9"); err != nil {
		t.Fatalf("first Migrate returned error: %v", err)
	}

	second, err := svc.Migrate(context.Background(), "L1", "A9")
	if err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}
	if len(second.HistoryEntries) != 0 {
		t.Errorf("2回目のHistoryEntries = %d件, want 0", len(second.HistoryEntries))
	}
	if len(second.QuestionEntries) != 0 {
		t.Errorf("2回目のQuestionEntries = %d件, want 0", len(second.QuestionEntries))
	}
	if len(second.Profiles) != 0 {
		t.Errorf("2回目のProfiles = %d件, want 0", len(second.Profiles))
	}
}

// TestService_Migrate_EmptyVariantSkipsUpdate は対象0件の変種が更新を
// 発行しないことをテストする。
func TestService_Migrate_EmptyVariantSkipsUpdate(t *testing.T) {
	svc, _, profileRepo, questionRepo, historyRepo := newTestService()
	historyRepo.entries = []*model.HistoryEntry{{ID: 1, OwnerID: "L1", Text: "x"}}

	if _, err := svc.Migrate(context.Background(), "L1", "A9"); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	if historyRepo.reassignCalls != 1 {
		t.Errorf("historyRepo.ReassignOwner calls = %d, want 1", historyRepo.reassignCalls)
	}
	if questionRepo.reassignCalls != 0 {
		t.Errorf("0件のQ&A変種は更新を発行しないべき。calls = %d", questionRepo.reassignCalls)
	}
	if profileRepo.reassignCalls != 0 {
		t.Errorf("0件のプロフィール変種は更新を発行しないべき。calls = %d", profileRepo.reassignCalls)
	}
}

// TestService_Migrate_PartialFailure は一部変種の失敗がPartialMigrationとして
// 返り、成功・失敗した変種名がDetailに載ることをテストする。
func TestService_Migrate_PartialFailure(t *testing.T) {
	svc, _, _, questionRepo, historyRepo := newTestService()
	seedOwnedRecords(historyRepo, questionRepo)
	historyRepo.reassignErr = errors.New("update failed")

	_, err := svc.Migrate(context.Background(), "L1", "A9")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodePartialMigration {
		t.Fatalf("error code = %q, want %q", apiErr.Code, model.ErrCodePartialMigration)
	}

	succeeded, _ := apiErr.Detail["succeeded"].([]string)
	failed, _ := apiErr.Detail["failed"].([]string)
	if len(succeeded) != 2 {
		t.Errorf("succeeded = %v, want 2 variants", succeeded)
	}
	if len(failed) != 1 || failed[0] != variantHistories {
		t.Errorf("failed = %v, want [%s]", failed, variantHistories)
	}

	// 失敗した変種以外は移行済みのまま（巻き戻さない）
	if questionRepo.entries[0].OwnerID != "A9" {
		t.Error("成功した変種は移行済みのまま保持されるべき")
	}
	if historyRepo.entries[0].OwnerID != "L1" {
		t.Error("失敗した変種の所有者は変わらないべき")
	}
}

// TestService_Migrate_PartialFailure_RetryCompletes は部分失敗後の再実行で
// 残りの変種だけが移行されることをテストする。
func TestService_Migrate_PartialFailure_RetryCompletes(t *testing.T) {
	svc, _, _, questionRepo, historyRepo := newTestService()
	seedOwnedRecords(historyRepo, questionRepo)
	historyRepo.reassignErr = errors.New("update failed")

	if _, err := svc.Migrate(context.Background(), "L1", "A9"); err == nil {
		t.Fatal("expected partial migration error")
	}

	// 障害を解消して再実行
	historyRepo.reassignErr = nil

	result, err := svc.Migrate(context.Background(), "L1", "A9")
	if err != nil {
		t.Fatalf("retry Migrate returned error: %v", err)
	}
	if len(result.HistoryEntries) != 3 {
		t.Errorf("再実行でヒストリー3件が移行されるべき。got %d", len(result.HistoryEntries))
	}
	if len(result.QuestionEntries) != 0 {
		t.Errorf("移行済みのQ&Aは再実行で0件のはず。got %d", len(result.QuestionEntries))
	}

	for _, e := range historyRepo.entries {
		if e.OwnerID != "A9" {
			t.Errorf("entry OwnerID = %q, want %q", e.OwnerID, "A9")
		}
	}
}

// TestService_Migrate_AllVariantsAttempted はある変種の失敗後も残りの変種が
// 試行されることをテストする。
func TestService_Migrate_AllVariantsAttempted(t *testing.T) {
	svc, _, profileRepo, questionRepo, historyRepo := newTestService()
	seedOwnedRecords(historyRepo, questionRepo)
	profileRepo.profiles = []*model.Profile{{OwnerID: "L1", Niko: 0.8}}

	// 最初に試行されるQ&A変種を失敗させる
	questionRepo.reassignErr = errors.New("update failed")

	_, err := svc.Migrate(context.Background(), "L1", "A9")
	if code := apiErrorCode(err); code != model.ErrCodePartialMigration {
		t.Fatalf("error code = %q, want %q", code, model.ErrCodePartialMigration)
	}

	if historyRepo.reassignCalls != 1 {
		t.Errorf("ヒストリー変種は試行されるべき。calls = %d", historyRepo.reassignCalls)
	}
	if profileRepo.reassignCalls != 1 {
		t.Errorf("プロフィール変種は試行されるべき。calls = %d", profileRepo.reassignCalls)
	}
}

// --- Preview ---

// TestService_Preview_NotFound は旧アカウント不在時にnilが返ることをテストする。
func TestService_Preview_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	account, result, err := svc.Preview(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if account != nil || result != nil {
		t.Errorf("account = %v, result = %v, want nil, nil", account, result)
	}
}

// TestService_Preview_NoMutation はPreviewが所有権を変更しないことをテストする。
func TestService_Preview_NoMutation(t *testing.T) {
	svc, legacyRepo, _, questionRepo, historyRepo := newTestService()
	legacyRepo.accounts["old@example.com"] = &model.LegacyAccount{LocalID: "L1", Email: "old@example.com"}
	seedOwnedRecords(historyRepo, questionRepo)

	account, result, err := svc.Preview(context.Background(), "old@example.com")
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if account.LocalID != "L1" {
		t.Errorf("account.LocalID = %q, want %q", account.LocalID, "L1")
	}
	if len(result.HistoryEntries) != 3 || len(result.QuestionEntries) != 2 {
		t.Errorf("result sizes = %d histories, %d questions, want 3, 2",
			len(result.HistoryEntries), len(result.QuestionEntries))
	}
	if historyRepo.reassignCalls != 0 || questionRepo.reassignCalls != 0 {
		t.Error("Previewは所有権を変更しないべき")
	}
	for _, e := range historyRepo.entries {
		if e.OwnerID != "L1" {
			t.Errorf("entry OwnerID = %q, want %q", e.OwnerID, "L1")
		}
	}
}

// --- メトリクス ---

// mockMetrics はテスト用のMetricsRecorderモック。
type mockMetrics struct {
	migrationSuccess  int
	partialMigrations int
}

func (m *mockMetrics) RecordMigrationSuccess() { m.migrationSuccess++ }
func (m *mockMetrics) RecordPartialMigration() { m.partialMigrations++ }

// TestService_Metrics_Migrate は移行の成否がメトリクスに記録されることをテストする。
func TestService_Metrics_Migrate(t *testing.T) {
	legacyRepo := newMockLegacyRepo()
	profileRepo := &mockProfileRepo{}
	questionRepo := &mockQuestionRepo{}
	historyRepo := &mockHistoryRepo{}
	rec := &mockMetrics{}
	svc := NewService(legacyRepo, profileRepo, questionRepo, historyRepo, rec)

	seedOwnedRecords(historyRepo, questionRepo)

	if _, err := svc.Migrate(context.Background(), "L1", "A9"); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	if rec.migrationSuccess != 1 {
		t.Errorf("migrationSuccess = %d, want 1", rec.migrationSuccess)
	}

	seedOwnedRecords(historyRepo, questionRepo)
	historyRepo.reassignErr = errors.New("update failed")

	if _, err := svc.Migrate(context.Background(), "L1", "A9"); err == nil {
		t.Fatal("expected partial migration error")
	}
	if rec.partialMigrations != 1 {
		t.Errorf("partialMigrations = %d, want 1", rec.partialMigrations)
	}
}
