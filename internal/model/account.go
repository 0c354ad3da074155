// Package model はドメインモデルを定義する。
package model

import "time"

// Provider は外部IdPの種別を表す。
type Provider string

const (
	// ProviderGoogle はGoogleのIdPを示す。
	ProviderGoogle Provider = "google"
	// ProviderApple はAppleのIdPを示す。
	ProviderApple Provider = "apple"
)

// ValidProvider はproviderが許可された列挙値かどうかを判定する。
func ValidProvider(p string) bool {
	switch Provider(p) {
	case ProviderGoogle, ProviderApple:
		return true
	}
	return false
}

// Account は認証バックエンドが管理するアカウントを表す。
// IDはバックエンドがアカウント作成時に払い出す。
type Account struct {
	ID    string
	Email string
}

// SessionCredentials は認証バックエンドが発行するセッション資格情報を表す。
type SessionCredentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// IdentityLink は外部IdPのsubjectとアカウントの紐付けを表す。
// (provider, subject_id)の組は高々1つのアカウントにしか解決されない。
type IdentityLink struct {
	ID        string
	AccountID string
	Provider  Provider
	SubjectID string
	CreatedAt time.Time
}

// LegacyAccount は旧システムのアカウントを表す。読み取り専用で、
// 本システムが作成・削除することはない。
type LegacyAccount struct {
	LocalID string
	Email   string
}

// Profile は禁煙トラッキングの設定を保持するプロフィール行を表す。
// OwnerIDはアカウントIDまたは移行前の旧ID（LegacyAccount.LocalID）を指す。
type Profile struct {
	OwnerID            string
	SelectedDateYear   int
	SelectedDateMonth  int
	SelectedDateDay    int
	SelectedTimeHour   int
	SelectedTimeMinute int
	StartDateYear      int
	StartDateMonth     int
	StartDateDay       int
	Money              float64
	Smol               int
	Cigarette          int
	Niko               float64
	Age                int

	// 任意属性。未設定（nil）とゼロ値を区別するためポインタで保持する。
	Name     *string
	Currency *string
	IsPro    *bool
}
