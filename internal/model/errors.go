// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string         // 機械可読なエラーコード
	Message  string         // エラーメッセージ
	Category string         // カテゴリ: auth, validation, identity, migration, system
	Action   string         // ユーザー向け対処方法
	Detail   map[string]any // 追加情報（部分移行の成功変種など）。省略可。
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeBackendUnavailable    = "BACKEND_UNAVAILABLE"
	ErrCodeQueryError            = "QUERY_ERROR"
	ErrCodeWriteError            = "WRITE_ERROR"
	ErrCodeIdentityAlreadyLinked = "IDENTITY_ALREADY_LINKED"
	ErrCodeCompensationFailed    = "COMPENSATION_FAILED"
	ErrCodePartialMigration      = "PARTIAL_MIGRATION"
)

// NewInvalidInputError はリクエスト内容の不備エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("リクエスト内容が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストボディの必須フィールドを確認してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNotFoundError は対象リソースの未検出エラーを生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("対象が見つかりません: %s", resource),
		Category: "validation",
		Action:   "指定した内容を確認してください。",
	}
}

// NewBackendUnavailableError は認証バックエンドの呼び出し失敗エラーを生成する。
func NewBackendUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendUnavailable,
		Message:  "認証バックエンドの呼び出しに失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewQueryError はデータ参照の失敗エラーを生成する。
func NewQueryError() *APIError {
	return &APIError{
		Code:     ErrCodeQueryError,
		Message:  "データの参照に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewWriteError はデータ書き込みの失敗エラーを生成する。
func NewWriteError() *APIError {
	return &APIError{
		Code:     ErrCodeWriteError,
		Message:  "データの書き込みに失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewIdentityAlreadyLinkedError は並行プロビジョニング時の一意制約違反エラーを生成する。
// 致命的なエラーではなく、呼び出し元はresolveからやり直せば復旧できる。
func NewIdentityAlreadyLinkedError(provider, subjectID string) *APIError {
	return &APIError{
		Code:     ErrCodeIdentityAlreadyLinked,
		Message:  fmt.Sprintf("このIDはすでに別のアカウントに紐付いています: %s/%s", provider, subjectID),
		Category: "identity",
		Action:   "再度リクエストを送信してください。既存アカウントへのログインに切り替わります。",
	}
}

// NewCompensationFailedError は補償削除の失敗エラーを生成する。
// リンク行のないアカウントが残った状態を示し、運用者による手動回収が必要になる。
func NewCompensationFailedError(accountID, provider, subjectID string) *APIError {
	return &APIError{
		Code:     ErrCodeCompensationFailed,
		Message:  "アカウント作成の巻き戻しに失敗しました。",
		Category: "identity",
		Action:   "サポートへ連絡してください。",
		Detail: map[string]any{
			"accountId": accountID,
			"provider":  provider,
			"subjectId": subjectID,
		},
	}
}

// NewPartialMigrationError は所有権移行の部分失敗エラーを生成する。
// succeededには移行が完了した変種名（profile, questionEntries, historyEntries）を入れる。
// 移行は冪等なので、呼び出し元は同じリクエストを再送するだけで残りを完了できる。
func NewPartialMigrationError(succeeded, failed []string) *APIError {
	return &APIError{
		Code:     ErrCodePartialMigration,
		Message:  "一部のデータの移行に失敗しました。",
		Category: "migration",
		Action:   "同じリクエストを再送すると未移行のデータのみが処理されます。",
		Detail: map[string]any{
			"succeeded": succeeded,
			"failed":    failed,
		},
	}
}
