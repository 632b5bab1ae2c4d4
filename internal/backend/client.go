// Package backend はブログバックエンドREST APIのクライアントを提供する。
// すべてのデータ操作はこのクライアント経由の薄いHTTP呼び出しで行う。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/blogfront/internal/metrics"
)

// maxErrorBodySize はエラーレスポンスから読み取るボディの上限。
const maxErrorBodySize = 64 * 1024

// Client はブログバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURL末尾のスラッシュは取り除く。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger, mc metrics.MetricsCollector) *Client {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    mc,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// request は1回のAPI呼び出しの内容。
type request struct {
	method string
	path   string // クエリを含むパス
	route  string // メトリクス用のルートテンプレート
	token  string
	body   any
}

// do はリクエストを送信し、2xxならoutにJSONをデコードする。
// 2xx以外は*StatusErrorを返す。outがnilの場合はボディを読み捨てる。
func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordBackendRequest(r.route, 0, time.Since(start))
		c.logger.Error("backend request failed",
			slog.String("method", r.method),
			slog.String("route", r.route),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("バックエンドの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.RecordBackendRequest(r.route, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var errBody struct {
			Message json.RawMessage `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if json.Unmarshal(raw, &errBody) == nil {
			se.Message = decodeMessage(errBody.Message)
		}
		c.logger.Warn("backend returned error status",
			slog.String("method", r.method),
			slog.String("route", r.route),
			slog.Int("http_status", resp.StatusCode),
		)
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// decodeMessage はmessageフィールドを文字列にする。
// バリデーションエラーでは文字列配列が返ることがあるため、その場合は連結する。
func decodeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

// requireToken は認証必須APIの事前チェック。トークンが空ならErrUnauthorized。
func requireToken(token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	return nil
}
