package service

import (
	"context"
	"net/url"
	"strings"

	"ai_tutor_backend/internal/config"
	"ai_tutor_backend/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageService 错题图片的临时访问URL签发
// 错题图片存放在对象存储私有桶中，响应里只下发带签名的临时链接
type StorageService struct {
	cfg    config.StorageConfig
	client *minio.Client
}

func NewStorageService(cfg config.StorageConfig) (*StorageService, error) {
	s := &StorageService{cfg: cfg}
	if !cfg.Enabled {
		return s, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

// PresignImageURLs 把对象键换成带签名的临时GET链接
// 存储未启用或签发失败时原样返回，页面至少还能拿到原始地址
func (s *StorageService) PresignImageURLs(ctx context.Context, raws []string) []string {
	if len(raws) == 0 {
		return nil
	}
	if s.client == nil {
		return raws
	}

	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		key := objectKeyFromURL(raw)
		if key == "" {
			out = append(out, raw)
			continue
		}
		presigned, err := s.client.PresignedGetObject(ctx, s.cfg.MinioBucket, key, s.cfg.PresignExpire, url.Values{})
		if err != nil {
			logger.Log.Warn("图片URL签发失败", zap.String("key", key), zap.Error(err))
			out = append(out, raw)
			continue
		}
		out = append(out, presigned.String())
	}
	return out
}

// objectKeyFromURL 支持直接传对象键，也支持带桶前缀的完整URL
func objectKeyFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimPrefix(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.TrimPrefix(u.Path, "/")
	// 完整URL的路径形如 bucket/object/key.jpg，去掉桶段
	if idx := strings.Index(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
