package handler

import "net/http"

// emailChangeTemplate はメールアドレス変更確認メールのHTMLテンプレート。
// {{ .Token }}プレースホルダーは認証バックエンドのメール送信時に展開される
// ため、ここでは展開せずそのまま返す。
const emailChangeTemplate = `<html>
    <body>
        <h2>Изменение почты</h2>
        <p>Введите код в приложении: <b>{{ .Token }}</b></p>
    </body>
</html>
`

// TemplateHandler はメールテンプレート配信のHTTPハンドラー。
type TemplateHandler struct{}

// NewTemplateHandler はTemplateHandlerを生成する。
func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

// EmailChange はメールアドレス変更テンプレートを返す。
// GET /templates/email-change
func (h *TemplateHandler) EmailChange(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(emailChangeTemplate))
}
