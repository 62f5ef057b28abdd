// Package gcs 提供与 Google Cloud Storage 交互的基础设施封装。
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/oauth2/google"
)

// v4 签名的最长有效期为 7 天，预留一分钟避免边界误差。
const maxV4TTL = 7*24*time.Hour - time.Minute

// URLSigner 负责为附件生成只读签名 URL。
type URLSigner struct {
	googleAccessID string
	privateKey     []byte
	scheme         storage.SigningScheme
	expires        time.Time
	now            func() time.Time
	log            *log.Helper
}

// Option 定义可选配置。
type Option func(*URLSigner)

// WithClock 覆盖时间获取函数，便于测试。
func WithClock(clock func() time.Time) Option {
	return func(s *URLSigner) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithServiceAccountKey 允许直接注入访问 ID 与私钥（测试友好）。
func WithServiceAccountKey(accessID string, privateKey []byte) Option {
	return func(s *URLSigner) {
		if accessID != "" {
			s.googleAccessID = accessID
		}
		if len(privateKey) > 0 {
			s.privateKey = append([]byte(nil), privateKey...)
		}
	}
}

// WithScheme 选择签名方案；v2 允许任意远期过期时间。
func WithScheme(scheme storage.SigningScheme) Option {
	return func(s *URLSigner) {
		s.scheme = scheme
	}
}

// WithExpiry 设置固定的过期时间点。
func WithExpiry(expires time.Time) Option {
	return func(s *URLSigner) {
		if !expires.IsZero() {
			s.expires = expires
		}
	}
}

// NewURLSigner 创建 URLSigner，未注入私钥时从默认凭据中读取 service account 私钥。
func NewURLSigner(ctx context.Context, accessID string, logger log.Logger, opts ...Option) (*URLSigner, error) {
	signer := &URLSigner{
		googleAccessID: accessID,
		scheme:         storage.SigningSchemeV2,
		now:            time.Now,
		log:            log.NewHelper(logger),
	}

	for _, opt := range opts {
		opt(signer)
	}

	if len(signer.privateKey) == 0 {
		privKey, detectedAccessID, err := loadServiceAccountKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs signer: %w", err)
		}
		signer.privateKey = privKey
		if signer.googleAccessID == "" {
			signer.googleAccessID = detectedAccessID
		} else if detectedAccessID != "" && detectedAccessID != signer.googleAccessID {
			signer.log.WithContext(ctx).Warnf("gcs signer access id mismatch: config=%s credentials=%s", signer.googleAccessID, detectedAccessID)
		}
	}

	if signer.googleAccessID == "" {
		return nil, errors.New("gcs signer: google access id is required")
	}
	if len(signer.privateKey) == 0 {
		return nil, errors.New("gcs signer: private key is required")
	}
	if signer.expires.IsZero() {
		return nil, errors.New("gcs signer: expiry is required")
	}

	return signer, nil
}

// SignedReadURL 生成对象的只读签名 URL，返回实际使用的过期时间。
func (s *URLSigner) SignedReadURL(ctx context.Context, bucket, objectName string) (signedURL string, expires time.Time, err error) {
	if bucket == "" {
		return "", time.Time{}, errors.New("bucket is required")
	}
	if objectName == "" {
		return "", time.Time{}, errors.New("object name is required")
	}

	now := s.now()
	expires = s.expires
	if s.scheme == storage.SigningSchemeV4 {
		if limit := now.Add(maxV4TTL); expires.After(limit) {
			expires = limit
		}
	}
	if !expires.After(now) {
		return "", time.Time{}, fmt.Errorf("signed url expiry %s is not in the future", expires.Format(time.RFC3339))
	}

	opts := &storage.SignedURLOptions{
		Scheme:         s.scheme,
		Method:         http.MethodGet,
		Expires:        expires,
		GoogleAccessID: s.googleAccessID,
		PrivateKey:     s.privateKey,
	}

	url, signErr := storage.SignedURL(bucket, objectName, opts)
	if signErr != nil {
		s.log.WithContext(ctx).Errorf("generate signed url failed: bucket=%s object=%s err=%v", bucket, objectName, signErr)
		return "", time.Time{}, fmt.Errorf("signed url: %w", signErr)
	}
	return url, expires, nil
}

type serviceAccountKey struct {
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
}

func loadServiceAccountKey(ctx context.Context) ([]byte, string, error) {
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("find default credentials: %w", err)
	}
	if len(creds.JSON) == 0 {
		return nil, "", errors.New("service account JSON not found in default credentials")
	}

	var key serviceAccountKey
	if err := json.Unmarshal(creds.JSON, &key); err != nil {
		return nil, "", fmt.Errorf("parse service account json: %w", err)
	}
	if key.PrivateKey == "" {
		return nil, "", errors.New("service account private key is empty; use a service account JSON credential")
	}
	return []byte(key.PrivateKey), key.ClientEmail, nil
}
