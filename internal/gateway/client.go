// Package gateway はマネージド認証バックエンド（GoTrue互換API）のクライアントを提供する。
// アカウントの作成・削除、ワンタイムパスコードの送信、アクセストークンからの
// アカウント解決を含む。バックエンドの内部実装（トークン発行・パスワードハッシュ等）は
// ブラックボックスとして扱う。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// ErrUnauthorized はトークンが無効または期限切れであることを示す。
var ErrUnauthorized = errors.New("invalid or expired access token")

// Config はバックエンドへの接続設定。
type Config struct {
	BaseURL    string // 例: "https://xxxx.supabase.co"
	AnonKey    string // 一般リクエスト用のAPIキー
	ServiceKey string // 管理操作（アカウント削除）用のAPIキー
}

// Client は認証バックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     Config
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, config Config) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// CreatedAccount はアカウント作成の結果を表す。
type CreatedAccount struct {
	Account     model.Account
	Credentials model.SessionCredentials
}

// signUpResponse はsignupエンドポイントのレスポンスボディ。
type signUpResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// CreateAccount は指定emailとシークレットでアカウントを作成し、
// バックエンドが払い出したアカウントIDとセッション資格情報を返す。
func (c *Client) CreateAccount(ctx context.Context, email, secret string) (*CreatedAccount, error) {
	body := map[string]string{
		"email":    email,
		"password": secret,
	}

	resp, err := c.post(ctx, "/auth/v1/signup", c.config.AnonKey, "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("アカウント作成がエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("account creation returned status %d", resp.StatusCode)
	}

	var parsed signUpResponse
	if err := decodeBody(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode signup response: %w", err)
	}
	if parsed.User.ID == "" {
		return nil, fmt.Errorf("signup response is missing account ID")
	}

	return &CreatedAccount{
		Account: model.Account{
			ID:    parsed.User.ID,
			Email: parsed.User.Email,
		},
		Credentials: model.SessionCredentials{
			AccessToken:  parsed.AccessToken,
			RefreshToken: parsed.RefreshToken,
			ExpiresAt:    parsed.ExpiresAt,
		},
	}, nil
}

// DeleteAccount は指定アカウントを削除する。
// すでに存在しないアカウント（404）は成功として扱う。リトライ後の再削除を
// 致命的エラーにしないための扱いで、補償処理の冪等性をここで担保する。
func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	endpoint := "/auth/v1/admin/users/" + url.PathEscape(accountID)

	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, c.config.ServiceKey, "", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("アカウント削除の呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID),
		)
		return fmt.Errorf("failed to call account deletion: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		// 対象が存在しない削除は成功扱い
		return nil
	default:
		c.logger.Error("アカウント削除がエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("account_id", accountID),
		)
		return fmt.Errorf("account deletion returned status %d", resp.StatusCode)
	}
}

// SendOneTimePasscode は指定emailにワンタイムパスコードの送信を依頼する。
// 送信失敗はそのまま呼び出し元へ返し、リトライは行わない。
func (c *Client) SendOneTimePasscode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}

	resp, err := c.post(ctx, "/auth/v1/otp", c.config.AnonKey, "", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("ワンタイムパスコード送信がエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("passcode dispatch returned status %d", resp.StatusCode)
	}

	return nil
}

// accountResponse はuserエンドポイントのレスポンスボディ。
type accountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AccountFromToken はアクセストークンからアカウントを解決する。
// トークンが無効な場合はErrUnauthorizedを返す。
func (c *Client) AccountFromToken(ctx context.Context, token string) (*model.Account, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", c.config.AnonKey, token, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("アカウント解決の呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to call account resolution: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("アカウント解決がエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("account resolution returned status %d", resp.StatusCode)
	}

	var parsed accountResponse
	if err := decodeBody(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	if parsed.ID == "" {
		return nil, ErrUnauthorized
	}

	return &model.Account{ID: parsed.ID, Email: parsed.Email}, nil
}

// post はJSONボディ付きのPOSTリクエストを発行する。
func (c *Client) post(ctx context.Context, endpoint, apiKey, token string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, apiKey, token, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("認証バックエンドの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("endpoint", endpoint),
		)
		return nil, fmt.Errorf("failed to call auth backend: %w", err)
	}

	return resp, nil
}

// newRequest は共通ヘッダー付きのHTTPリクエストを組み立てる。
// tokenが空の場合はapiKeyをBearerトークンとして使用する。
func (c *Client) newRequest(ctx context.Context, method, endpoint, apiKey, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("apikey", apiKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	return req, nil
}

// decodeBody はレスポンスボディをJSONとしてデコードする。
func decodeBody(r io.Reader, dest any) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}
