package model

// DefaultDisplayName は表示名が未指定の場合に使われる既定値。
const DefaultDisplayName = "Анонимный пользователь"

// HistoryEntry は禁煙ヒストリーの1件を表す。
// OwnerIDはアカウントIDまたは移行前の旧IDを指す。
type HistoryEntry struct {
	ID            int64
	OwnerID       string
	Date          string // dd.mm.yyyy 形式
	DateTimestamp int64  // エポックミリ秒
	Name          string
	Text          string
	IsReady       bool
}

// QuestionEntry はQ&Aフィードバックの1件を表す。
type QuestionEntry struct {
	ID         int64
	OwnerID    string
	Date       string // dd.mm.yyyy 形式
	Question   string
	IsAnswered bool
	Name       string
	Email      string
	MailSent   *bool
}
