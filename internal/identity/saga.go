package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/gateway"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/repository"
)

// State はプロビジョニングサーガの進行状態を表す。
type State string

const (
	// StateInit はまだ何も作成していない初期状態。
	StateInit State = "init"
	// StateCreated はアカウント作成まで完了した状態。リンク行はまだない。
	StateCreated State = "created"
	// StateLinked はアカウントとリンク行の両方が作成された最終状態。
	StateLinked State = "linked"
	// StateRolledBack はリンク挿入の失敗後、補償削除まで完了した状態。
	// 呼び出し前の不変条件が回復している。
	StateRolledBack State = "rolled_back"
	// StateFailedUnrecoverable は補償削除にも失敗した状態。
	// リンク行のないアカウントが残っており、運用者による手動回収が必要。
	StateFailedUnrecoverable State = "failed_unrecoverable"
)

// sagaStep は巻き戻し可能な1ステップを表す。
// compensateがnilのステップは補償不要（まだ何も作っていない）を意味する。
type sagaStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// provisionSaga はアカウント作成→リンク挿入の2段サーガ。
// ステップ間のロックは想定せず、リンク挿入時の一意制約違反は
// IdentityAlreadyLinkedとして呼び出し元に返す。
type provisionSaga struct {
	gateway   AuthGateway
	identRepo repository.IdentityRepository

	provider  model.Provider
	subjectID string
	email     string
	secret    string

	state   State
	created *gateway.CreatedAccount
	linkErr error // リンク挿入で発生した元のエラー
}

// newProvisionSaga はprovisionSagaを生成する。
func newProvisionSaga(gw AuthGateway, identRepo repository.IdentityRepository, provider model.Provider, subjectID, email string) *provisionSaga {
	return &provisionSaga{
		gateway:   gw,
		identRepo: identRepo,
		provider:  provider,
		subjectID: subjectID,
		email:     email,
		secret:    newSecret(),
		state:     StateInit,
	}
}

// steps はサーガを構成するステップ列を返す。
func (s *provisionSaga) steps() []sagaStep {
	return []sagaStep{
		{name: "create_account", run: s.createAccount, compensate: s.deleteAccount},
		{name: "insert_link", run: s.insertLink},
	}
}

// run はステップを順に実行する。途中で失敗した場合は実行済みステップの補償を
// 逆順で実行し、失敗理由に応じたエラーを返す。
//
// 成功時はアカウントとリンク行がちょうど1つずつ存在する。
// CompensationFailed以外の失敗時はどちらも存在しない。
func (s *provisionSaga) run(ctx context.Context) (*ProvisionResult, error) {
	steps := s.steps()

	for i, step := range steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}

		// 実行済みステップを逆順で補償する
		for j := i - 1; j >= 0; j-- {
			if steps[j].compensate == nil {
				continue
			}
			if compErr := steps[j].compensate(ctx); compErr != nil {
				s.state = StateFailedUnrecoverable
				slog.Error("補償処理に失敗しました。手動回収が必要です",
					slog.String("failed_step", step.name),
					slog.String("compensation_step", steps[j].name),
					slog.String("error", compErr.Error()),
					slog.String("account_id", s.created.Account.ID),
					slog.String("provider", string(s.provider)),
					slog.String("subject_id", s.subjectID),
				)
				return nil, model.NewCompensationFailedError(s.created.Account.ID, string(s.provider), s.subjectID)
			}
		}
		if s.state == StateCreated {
			s.state = StateRolledBack
		}

		return nil, s.mapStepError(step.name, err)
	}

	s.state = StateLinked

	return &ProvisionResult{
		AccountID:       s.created.Account.ID,
		Credentials:     s.created.Credentials,
		GeneratedSecret: s.secret,
	}, nil
}

// createAccount はバックエンドにアカウント作成を依頼する（ステップ1）。
func (s *provisionSaga) createAccount(ctx context.Context) error {
	created, err := s.gateway.CreateAccount(ctx, s.email, s.secret)
	if err != nil {
		return err
	}

	s.created = created
	s.state = StateCreated
	return nil
}

// insertLink はリンク行を挿入する（ステップ2）。
func (s *provisionSaga) insertLink(ctx context.Context) error {
	link := &model.IdentityLink{
		ID:        uuid.New().String(),
		AccountID: s.created.Account.ID,
		Provider:  s.provider,
		SubjectID: s.subjectID,
		CreatedAt: time.Now(),
	}

	if err := s.identRepo.Create(ctx, link); err != nil {
		s.linkErr = err
		return err
	}

	return nil
}

// deleteAccount はステップ1の補償。作成済みアカウントを削除する。
// すでに存在しないアカウントの削除はゲートウェイ側で成功扱いになる。
func (s *provisionSaga) deleteAccount(ctx context.Context) error {
	return s.gateway.DeleteAccount(ctx, s.created.Account.ID)
}

// mapStepError はステップの失敗をエラー種別へ変換する。
func (s *provisionSaga) mapStepError(stepName string, err error) error {
	switch stepName {
	case "create_account":
		slog.Error("アカウント作成に失敗しました",
			slog.String("error", err.Error()),
			slog.String("provider", string(s.provider)),
		)
		return model.NewBackendUnavailableError()
	case "insert_link":
		// 並行プロビジョニングの競合。もう一方の呼び出しが先にリンクを獲得した。
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			slog.Warn("リンク挿入が一意制約に違反しました（並行プロビジョニング競合）",
				slog.String("provider", string(s.provider)),
				slog.String("subject_id", s.subjectID),
			)
			return model.NewIdentityAlreadyLinkedError(string(s.provider), s.subjectID)
		}
		slog.Error("リンク行の挿入に失敗しました",
			slog.String("error", err.Error()),
			slog.String("provider", string(s.provider)),
		)
		return model.NewWriteError()
	default:
		return model.NewWriteError()
	}
}
