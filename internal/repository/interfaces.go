// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// ErrDuplicateIdentity は(provider, subject_id)の一意制約違反を示す。
// 並行プロビジョニングの競合時に発生し、呼び出し元で復旧可能なエラーとして扱う。
var ErrDuplicateIdentity = errors.New("identity already linked")

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndSubjectID はproviderとsubject_idでリンク行を検索する。
	// 見つからない場合はnilを返す（エラーではない）。
	FindByProviderAndSubjectID(ctx context.Context, provider, subjectID string) (*model.IdentityLink, error)

	// Create はリンク行を作成する。
	// (provider, subject_id)の一意制約に違反した場合はErrDuplicateIdentityを返す。
	Create(ctx context.Context, link *model.IdentityLink) error
}

// LegacyAccountRepository は旧システムアカウントの参照インターフェース。
// 読み取り専用で、書き込み操作は提供しない。
type LegacyAccountRepository interface {
	// FindByEmail はemail完全一致で旧アカウントを検索し、先頭の1件を返す。
	// 同一emailの行が複数ある場合はlocal_id昇順の先頭を採用する。
	// 見つからない場合はnilを返す（エラーではない）。
	FindByEmail(ctx context.Context, email string) (*model.LegacyAccount, error)
}

// ProfileRepository はプロフィール行の永続化インターフェース。
type ProfileRepository interface {
	// FindByOwnerID は指定オーナーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByOwnerID(ctx context.Context, ownerID string) (*model.Profile, error)

	// Create はプロフィール行を作成する。
	Create(ctx context.Context, profile *model.Profile) error

	// UpdateNiko はニコチン量のみを更新する。対象が存在しない場合もエラーにはならず、
	// 存在確認は呼び出し元が行う。
	UpdateNiko(ctx context.Context, ownerID string, niko float64) error

	// ListByOwnerID は指定オーナーの全プロフィール行を返す。所有権移行のスナップショット用。
	ListByOwnerID(ctx context.Context, ownerID string) ([]*model.Profile, error)

	// ReassignOwner はowner_idがoldOwnerIDの全行をnewOwnerIDに付け替える。
	// 対象0件でもエラーにならない（冪等）。
	ReassignOwner(ctx context.Context, oldOwnerID, newOwnerID string) error
}

// HistoryPatch はヒストリーの部分更新内容を表す。
// nilのフィールドは更新対象から除外され、既存値が維持される。
type HistoryPatch struct {
	Date          string // 更新のたびに必ず刷新される
	DateTimestamp int64
	Text          *string
	Name          *string
	IsReady       *bool
}

// HistoryRepository はヒストリー行の永続化インターフェース。
type HistoryRepository interface {
	// Create はヒストリー行を作成し、払い出されたIDをentry.IDに書き戻す。
	Create(ctx context.Context, entry *model.HistoryEntry) error

	// UpdateByIDAndOwner は指定IDかつ指定オーナーの行を部分更新する。
	// 更新対象が存在しない場合はfalseを返す。
	UpdateByIDAndOwner(ctx context.Context, id int64, ownerID string, patch HistoryPatch) (bool, error)

	// ListByOwnerID は指定オーナーの全ヒストリーを返す。
	ListByOwnerID(ctx context.Context, ownerID string) ([]*model.HistoryEntry, error)

	// ListPage は全ユーザーのヒストリーをソート・ページング付きで返す。
	// sortは"id"または"date_timestamp"のみ許可される。
	ListPage(ctx context.Context, sort string, limit, offset int) ([]*model.HistoryEntry, error)

	// CountReady はis_ready = trueの行数を返す。
	CountReady(ctx context.Context) (int, error)

	// ReassignOwner はowner_idがoldOwnerIDの全行をnewOwnerIDに付け替える。
	ReassignOwner(ctx context.Context, oldOwnerID, newOwnerID string) error
}

// QuestionRepository はQ&Aフィードバック行の永続化インターフェース。
type QuestionRepository interface {
	// Create はフィードバック行を作成し、払い出されたIDをentry.IDに書き戻す。
	Create(ctx context.Context, entry *model.QuestionEntry) error

	// ListByOwnerID は指定オーナーの全フィードバックを返す。
	ListByOwnerID(ctx context.Context, ownerID string) ([]*model.QuestionEntry, error)

	// ReassignOwner はowner_idがoldOwnerIDの全行をnewOwnerIDに付け替える。
	ReassignOwner(ctx context.Context, oldOwnerID, newOwnerID string) error
}
