// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/gateway"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// accountContextKey はリクエストコンテキストに認証済みアカウントを格納するためのキー。
var accountContextKey = contextKey("account")

// AccountResolver はアクセストークンからアカウントを解決するインターフェース。
// gateway.Clientの部分集合として定義する。
type AccountResolver interface {
	AccountFromToken(ctx context.Context, token string) (*model.Account, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを認証バックエンドで
// 検証し、解決されたアカウントをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには統一フォーマットの401を返す。
func NewAuthMiddleware(resolver AccountResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			account, err := resolver.AccountFromToken(r.Context(), token)
			if err != nil {
				if !errors.Is(err, gateway.ErrUnauthorized) {
					slog.Error("アカウント解決に失敗しました",
						slog.String("error", err.Error()),
					)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey, *account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーがない場合やBearer形式でない場合は空文字を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// AccountFromContext はリクエストコンテキストから認証済みアカウントを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func AccountFromContext(ctx context.Context) (model.Account, error) {
	account, ok := ctx.Value(accountContextKey).(model.Account)
	if !ok || account.ID == "" {
		return model.Account{}, fmt.Errorf("account not found in context")
	}
	return account, nil
}

// ContextWithAccount はコンテキストにアカウントを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAccount(ctx context.Context, account model.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}
