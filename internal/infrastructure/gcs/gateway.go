package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
)

// Gateway 封装附件流程需要的对象读写、删除与签名能力。
type Gateway struct {
	client *storage.Client
	signer *URLSigner
	log    *log.Helper
}

// NewGateway 构造 Gateway。
func NewGateway(client *storage.Client, signer *URLSigner, logger log.Logger) (*Gateway, error) {
	switch {
	case client == nil:
		return nil, errors.New("gcs gateway: storage client is required")
	case signer == nil:
		return nil, errors.New("gcs gateway: signer is required")
	}
	return &Gateway{
		client: client,
		signer: signer,
		log:    log.NewHelper(logger),
	}, nil
}

// Download 将对象下载到 dir 目录下，文件名与对象基名一致，返回本地路径。
func (g *Gateway) Download(ctx context.Context, bucket, objectName, dir string) (string, error) {
	name := path.Base(objectName)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("download: invalid object name %q", objectName)
	}
	localPath := filepath.Join(dir, name)

	reader, err := g.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("download gs://%s/%s: %w", bucket, objectName, err)
	}
	defer reader.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("download: create local file: %w", err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("download gs://%s/%s: %w", bucket, objectName, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("download: close local file: %w", err)
	}
	g.log.WithContext(ctx).Debugf("gcs: downloaded gs://%s/%s to %s", bucket, objectName, localPath)
	return localPath, nil
}

// Upload 将本地文件写入目标对象。
func (g *Gateway) Upload(ctx context.Context, localPath, bucket, objectName, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("upload: open local file: %w", err)
	}
	defer file.Close()

	writer := g.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return fmt.Errorf("upload gs://%s/%s: %w", bucket, objectName, err)
	}
	// 写入在 Close 时才真正提交。
	if err := writer.Close(); err != nil {
		return fmt.Errorf("upload gs://%s/%s: %w", bucket, objectName, err)
	}
	g.log.WithContext(ctx).Debugf("gcs: uploaded %s to gs://%s/%s", localPath, bucket, objectName)
	return nil
}

// Delete 删除对象。
func (g *Gateway) Delete(ctx context.Context, bucket, objectName string) error {
	if err := g.client.Bucket(bucket).Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("delete gs://%s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// SignedURL 生成对象的只读签名 URL。
func (g *Gateway) SignedURL(ctx context.Context, bucket, objectName string) (string, error) {
	url, _, err := g.signer.SignedReadURL(ctx, bucket, objectName)
	if err != nil {
		return "", err
	}
	return url, nil
}
