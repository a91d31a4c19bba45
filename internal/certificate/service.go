package certificate

import (
	"io"
	"log/slog"

	"spaceshop-server/internal/purchase"
	"spaceshop-server/internal/shared/errors"
)

// Service guards rendering behind an optional Renderer. A nil renderer
// means the deployment did not enable certificates; requests get a
// clean unavailable error rather than a crash.
type Service struct {
	renderer Renderer
	logger   *slog.Logger
}

func NewService(renderer Renderer, logger *slog.Logger) *Service {
	logger.Debug("Initializing certificate service", "enabled", renderer != nil)

	return &Service{
		renderer: renderer,
		logger:   logger,
	}
}

func (s *Service) Enabled() bool {
	return s.renderer != nil
}

func (s *Service) RenderPurchase(w io.Writer, item purchase.CertificateItem) error {
	if s.renderer == nil {
		return errors.Unavailable("certificate generation is not enabled on this server")
	}

	if err := s.renderer.Purchase(w, item); err != nil {
		return errors.WrapInternal("certificate rendering failed", err)
	}
	return nil
}

func (s *Service) RenderBatch(w io.Writer, items []purchase.CertificateItem) error {
	if s.renderer == nil {
		return errors.Unavailable("certificate generation is not enabled on this server")
	}

	if err := s.renderer.Batch(w, items); err != nil {
		return errors.WrapInternal("certificate rendering failed", err)
	}
	return nil
}
