package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bulkmeta/internal/archive"
	"github.com/listenupapp/bulkmeta/internal/config"
	"github.com/listenupapp/bulkmeta/internal/logger"
	"github.com/listenupapp/bulkmeta/internal/notice"
)

// MailboxHandle wraps the notice mailbox with shutdown capability.
type MailboxHandle struct {
	*notice.Mailbox
}

// Shutdown implements do.ShutdownerWithError.
func (h *MailboxHandle) Shutdown() error {
	return h.Close()
}

// ProvideMailbox provides the per-user notice mailbox.
func ProvideMailbox(i do.Injector) (*MailboxHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	mb, err := notice.Open(notice.Options{
		Path:   cfg.Storage.NoticePath,
		Logger: log.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &MailboxHandle{Mailbox: mb}, nil
}

// ProvideArchiver provides the upload archiver. Without a configured
// bucket, processed uploads are simply discarded.
func ProvideArchiver(i do.Injector) (archive.Archiver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Archive.Enabled() {
		log.Info("Upload archiving disabled")
		return archive.Noop{}, nil
	}

	a, err := archive.NewS3Archiver(context.Background(), archive.Config{
		Endpoint:        cfg.Archive.Endpoint,
		Region:          cfg.Archive.Region,
		Bucket:          cfg.Archive.Bucket,
		Prefix:          cfg.Archive.Prefix,
		AccessKeyID:     cfg.Archive.AccessKeyID,
		SecretAccessKey: cfg.Archive.SecretAccessKey,
		UsePathStyle:    cfg.Archive.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Upload archiving enabled", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
	return a, nil
}
