package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/filex"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/avatars"
	"github.com/dmitrijs2005/gophid/internal/server/config"
	"github.com/dmitrijs2005/gophid/internal/server/metrics"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/repomanager"
)

// Canonical avatar geometry and encoding.
const (
	AvatarSide    = 250
	AvatarQuality = 60
)

const (
	MsgAvatarMissing  = "Avatar must be provided"
	MsgAvatarTooLarge = "Avatar must not exceed 2 MiB"
	MsgAvatarInvalid  = "Avatar must be a valid image"
)

// AvatarUpload describes a file already spooled to TempPath by the
// transport layer. Origin is the public origin used to build the URL.
type AvatarUpload struct {
	OwnerID      string
	TempPath     string
	Size         int64
	OriginalName string
	Origin       string
}

type AvatarPipeline struct {
	accounts accounts.Repository
	storage  avatars.Storage
	tempDir  string
	timeout  time.Duration
	maxBytes int64
	log      logging.Logger
	metrics  *metrics.Metrics
}

func NewAvatarPipeline(rm repomanager.RepositoryManager, storage avatars.Storage, cfg *config.Config,
	log logging.Logger, m *metrics.Metrics) *AvatarPipeline {
	return &AvatarPipeline{
		accounts: rm.Accounts(),
		storage:  storage,
		tempDir:  cfg.TempDir,
		timeout:  cfg.AvatarTimeout,
		maxBytes: common.AvatarMaxBytes,
		log:      log.With("module", "avatars"),
		metrics:  m,
	}
}

// AvatarFileName derives the stored name from the owner and the uploaded
// file's base name. The same owner uploading the same name overwrites the
// previous file.
func AvatarFileName(ownerID, originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, base)
	base = strings.TrimLeft(base, ".")
	if base == "" {
		base = "avatar"
	}
	return ownerID + "_" + base + ".jpg"
}

// Accept validates, resizes and stores an uploaded avatar, then points the
// account at it. The account is updated only after the file is in place.
// The uploaded and the processed temporary files are removed on every path.
func (p *AvatarPipeline) Accept(ctx context.Context, up AvatarUpload) (avatarURL string, err error) {
	defer func() { p.metrics.ObserveAvatarUpload(err) }()
	defer p.cleanup(ctx, up.TempPath)

	if up.TempPath == "" {
		return "", common.NewError(common.ErrorBadRequest, MsgAvatarMissing)
	}
	if up.OwnerID == "" {
		return "", common.NewError(common.ErrorUnauthorized, MsgNotAuthorized)
	}
	if up.Size > p.maxBytes {
		return "", common.NewError(common.ErrorBadRequest, MsgAvatarTooLarge)
	}

	fi, err := os.Stat(up.TempPath)
	if err != nil {
		return "", fmt.Errorf("error reading upload: %w", err)
	}
	if fi.Size() > p.maxBytes {
		return "", common.NewError(common.ErrorBadRequest, MsgAvatarTooLarge)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	img, err := decode(ctx, up.TempPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		p.log.Warn(ctx, "avatar decode failed", "account_id", up.OwnerID, "error", err)
		return "", common.NewError(common.ErrorBadRequest, MsgAvatarInvalid)
	}

	processed, err := p.encode(imaging.Resize(img, AvatarSide, AvatarSide, imaging.Lanczos))
	if err != nil {
		return "", err
	}
	defer p.cleanup(ctx, processed)

	name := AvatarFileName(up.OwnerID, up.OriginalName)
	if err := p.storage.Store(ctx, processed, name); err != nil {
		return "", fmt.Errorf("error storing avatar: %w", err)
	}

	avatarURL = p.storage.URL(up.Origin, name)
	if err := p.accounts.UpdateAvatar(ctx, up.OwnerID, avatarURL); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.NewError(common.ErrorNotFound, MsgNotFound)
		}
		return "", fmt.Errorf("error updating avatar url: %w", err)
	}

	p.log.Info(ctx, "avatar updated", "account_id", up.OwnerID, "url", avatarURL)
	return avatarURL, nil
}

// decode runs imaging.Open so that a slow decode still honours ctx.
func decode(ctx context.Context, path string) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)

	go func() {
		img, err := imaging.Open(path)
		ch <- result{img: img, err: err}
	}()

	select {
	case r := <-ch:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *AvatarPipeline) encode(img image.Image) (path string, err error) {
	f, err := os.CreateTemp(p.tempDir, "avatar-*.jpg")
	if err != nil {
		return "", fmt.Errorf("error creating temp file: %w", err)
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	if err = imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(AvatarQuality)); err != nil {
		return "", fmt.Errorf("error encoding avatar: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("error closing temp file: %w", err)
	}

	return path, nil
}

func (p *AvatarPipeline) cleanup(ctx context.Context, path string) {
	if err := filex.RemoveIfExists(path); err != nil {
		p.log.Warn(ctx, "temp file not removed", "path", path, "error", err)
	}
}
